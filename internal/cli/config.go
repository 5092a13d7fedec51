package cli

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/domain"
)

var durationType = reflect.TypeOf(time.Duration(0))

// LoadConfig resolves the effective configuration: tier defaults, then the
// config file, then MOTORDIAG_* environment variables.
func LoadConfig(v *viper.Viper) (*domain.Config, error) {
	cfg := domain.DefaultConfig()
	if domain.Tier(v.GetString("tier")) == domain.TierPro {
		cfg = domain.ProConfig()
	}

	// Defaults make every key visible to AutomaticEnv.
	flattenInto(configMap(cfg), "", v.SetDefault)

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if !cfg.Mode.Valid() {
		return nil, fmt.Errorf("invalid mode %q: want %q or %q", cfg.Mode, domain.ModeForward, domain.ModeFuzzy)
	}
	return cfg, nil
}

// configMap renders a config struct as nested maps keyed by mapstructure
// tags, with durations as strings.
func configMap(cfg any) map[string]any {
	return structMap(reflect.Indirect(reflect.ValueOf(cfg)))
}

func structMap(val reflect.Value) map[string]any {
	out := make(map[string]any, val.NumField())
	typ := val.Type()
	for i := range val.NumField() {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		key := field.Tag.Get("mapstructure")
		if key == "" || key == "-" {
			key = field.Name
		}

		fv := val.Field(i)
		switch {
		case fv.Type() == durationType:
			out[key] = time.Duration(fv.Int()).String()
		case fv.Kind() == reflect.Struct:
			out[key] = structMap(fv)
		default:
			out[key] = fv.Interface()
		}
	}
	return out
}

func flattenInto(m map[string]any, prefix string, set func(key string, value any)) {
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := val.(map[string]any); ok {
			flattenInto(nested, key, set)
			continue
		}
		set(key, val)
	}
}

// redactSecrets masks non-empty password values in place.
func redactSecrets(m map[string]any) {
	for k, val := range m {
		switch x := val.(type) {
		case map[string]any:
			redactSecrets(x)
		case string:
			if x != "" && strings.Contains(strings.ToLower(k), "password") {
				m[k] = "******"
			}
		}
	}
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(opts.v)
			if err != nil {
				return err
			}
			m := configMap(cfg)
			redactSecrets(m)
			out, err := yaml.Marshal(m)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	})
	return cmd
}
