// motordiag - Induction motor fault diagnosis and live telemetry service.
// Copyright (c) 2026 seipaa
// Licensed under the Apache License 2.0

package main

import (
	"fmt"
	"os"

	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/cli"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	info := cli.BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
	}
	if err := cli.Execute(info); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
