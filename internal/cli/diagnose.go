package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/diagnosis"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/domain"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/knowledge"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/rules"
)

func newDiagnoseCmd(opts *rootOptions) *cobra.Command {
	var (
		answers  []string
		mode     string
		asJSON   bool
		kbPath   string
		showQuiz bool
	)

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Diagnose a motor from symptom answers",
		Example: `  motordiag diagnose --answer 4=yes --answer 5=sometimes
  motordiag diagnose --answer 2=ya --answer 9=ya --mode fuzzy --json
  motordiag diagnose --questions`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(opts.v)
			if err != nil {
				return err
			}
			if kbPath == "" {
				kbPath = cfg.Knowledge.Path
			}
			kb, err := loadKnowledgeFile(kbPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if showQuiz {
				return printQuestions(out, kb)
			}

			raw, err := parseAnswerFlags(answers)
			if err != nil {
				return err
			}
			parsed, err := diagnosis.ParseAnswers(raw)
			if err != nil {
				return err
			}

			m := domain.Mode(mode)
			if m == "" {
				m = cfg.Mode
			}
			processor := diagnosis.NewProcessor(rules.NewEngine(kb), cfg.Mode)
			d, err := processor.Process(cmd.Context(), &diagnosis.Request{Mode: m, Answers: parsed})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(d)
			}
			return printDiagnosis(out, d)
		},
	}

	cmd.Flags().StringArrayVarP(&answers, "answer", "a", nil, "symptom answer as id=no|sometimes|yes (repeatable)")
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "evaluator: forward or fuzzy (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full diagnosis as JSON")
	cmd.Flags().StringVar(&kbPath, "knowledge", "", "knowledge base YAML file (default: built-in)")
	cmd.Flags().BoolVar(&showQuiz, "questions", false, "list the symptom questions and exit")
	return cmd
}

func parseAnswerFlags(values []string) (map[string]string, error) {
	raw := make(map[string]string, len(values))
	for _, v := range values {
		id, answer, ok := strings.Cut(v, "=")
		if !ok {
			return nil, fmt.Errorf("answer %q: want id=value", v)
		}
		raw[strings.TrimSpace(id)] = answer
	}
	return raw, nil
}

func loadKnowledgeFile(path string) (*knowledge.Base, error) {
	if path == "" {
		return knowledge.Default(), nil
	}
	return knowledge.LoadFile(path)
}

func printQuestions(w io.Writer, kb *knowledge.Base) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCF\tQUESTION")
	for _, s := range kb.Symptoms() {
		fmt.Fprintf(tw, "%d\t%.2f\t%s\n", s.ID, s.CFExpert, s.Question)
	}
	return tw.Flush()
}

func printDiagnosis(w io.Writer, d *domain.Diagnosis) error {
	fmt.Fprintf(w, "Mode: %s\n", d.Mode)

	if len(d.Results) == 0 {
		fmt.Fprintln(w, "No fault matched the answers.")
		return nil
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RULE\tLEVEL\tCF\tDAMAGE")
	for _, r := range d.Results {
		fmt.Fprintf(tw, "%s\t%s (%s)\t%.2f\t%s\n", r.RuleID, r.Level, r.Level.Label(), r.Confidence, r.Damage)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if d.Defuzzified != nil {
		fmt.Fprintf(w, "\nDefuzzified severity: %.3f\n", *d.Defuzzified)
	}

	if s := d.Summary; s != nil {
		fmt.Fprintf(w, "\nConclusion: %s, %.1f%% (%s)\n", s.DamageType, s.Percent, s.Label)
	}

	if solutions := diagnosis.Solutions(d); len(solutions) > 0 {
		fmt.Fprintln(w, "\nRecommended actions:")
		for _, sol := range solutions {
			fmt.Fprintf(w, "  - %s\n", sol)
		}
	}
	return nil
}
