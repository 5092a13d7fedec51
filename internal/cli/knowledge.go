package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

func newKnowledgeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "knowledge",
		Short: "Export or validate the knowledge base",
	}

	var outPath string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write the knowledge base as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(opts.v)
			if err != nil {
				return err
			}
			kb, err := loadKnowledgeFile(cfg.Knowledge.Path)
			if err != nil {
				return err
			}
			data, err := kb.Export()
			if err != nil {
				return err
			}
			if outPath == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outPath)
			return nil
		},
	}
	export.Flags().StringVarP(&outPath, "out", "o", "", "output file (default: stdout)")

	validate := &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a knowledge base file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			kb, err := loadKnowledgeFile(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "knowledge base v%d: %d symptoms, %d rules\n", kb.Version(), len(kb.Symptoms()), len(kb.Rules()))

			unresolved := kb.UnresolvedSymptoms()
			ids := make([]string, 0, len(unresolved))
			for id := range unresolved {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				fmt.Fprintf(out, "warning: rule %s references unknown symptoms %v\n", id, unresolved[id])
			}
			return nil
		},
	}

	cmd.AddCommand(export, validate)
	return cmd
}
