// Package cli wires the motordiag command line: configuration loading,
// logging and the serve, diagnose, knowledge and config commands.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MOTORDIAG_SERVER_PORT.
const EnvPrefix = "MOTORDIAG"

// BuildInfo is stamped into the binary via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

type rootOptions struct {
	cfgFile string
	envFile string
	verbose bool
	v       *viper.Viper
	info    BuildInfo
}

// Execute runs the root command.
func Execute(info BuildInfo) error {
	return NewRootCmd(info).Execute()
}

// NewRootCmd builds the command tree with its own viper instance.
func NewRootCmd(info BuildInfo) *cobra.Command {
	opts := &rootOptions{v: viper.New(), info: info}

	root := &cobra.Command{
		Use:   "motordiag",
		Short: "Induction motor fault diagnosis",
		Long: `motordiag diagnoses induction motor faults from a symptom questionnaire
with a certainty-factor rule base, and keeps a live view of motor telemetry.

Run "motordiag serve" for the HTTP service or "motordiag diagnose" for a
one-off diagnosis on the command line.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.initConfig()
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default: ./motordiag.yaml)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newServeCmd(opts),
		newDiagnoseCmd(opts),
		newKnowledgeCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(opts),
	)
	return root
}

func newVersionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "motordiag %s (commit %s, built %s)\n",
				opts.info.Version, opts.info.Commit, opts.info.BuildDate)
		},
	}
}

// initConfig loads the dotenv file, then the config file and environment.
func (o *rootOptions) initConfig() error {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", o.envFile, err)
		}
	}

	v := o.v
	if o.cfgFile != "" {
		v.SetConfigFile(o.cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("motordiag")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if o.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	} else if o.verbose {
		slog.Info("using config file", "path", v.ConfigFileUsed())
	}
	return nil
}
