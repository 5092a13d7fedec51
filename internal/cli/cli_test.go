package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/domain"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(BuildInfo{Version: "1.2.3", Commit: "abc123", BuildDate: "2026-01-01"})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--env-file", ""}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(viper.New())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Tier != domain.TierCommunity {
		t.Errorf("expected community tier, got %s", cfg.Tier)
	}
	if cfg.Repository.Driver != "sqlite" {
		t.Errorf("expected sqlite driver, got %s", cfg.Repository.Driver)
	}
	if cfg.Telemetry.OnlineWindow != 20*time.Second {
		t.Errorf("expected 20s online window, got %v", cfg.Telemetry.OnlineWindow)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("MOTORDIAG_SERVER_PORT", "9191")
	t.Setenv("MOTORDIAG_MODE", "fuzzy")
	t.Setenv("MOTORDIAG_TELEMETRY_ALERTWINDOW", "2m")

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := LoadConfig(v)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("expected port 9191, got %d", cfg.Server.Port)
	}
	if cfg.Mode != domain.ModeFuzzy {
		t.Errorf("expected fuzzy mode, got %s", cfg.Mode)
	}
	if cfg.Telemetry.AlertWindow != 2*time.Minute {
		t.Errorf("expected 2m alert window, got %v", cfg.Telemetry.AlertWindow)
	}
}

func TestLoadConfigProTier(t *testing.T) {
	v := viper.New()
	v.Set("tier", "pro")

	cfg, err := LoadConfig(v)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Repository.Driver != "postgres" {
		t.Errorf("expected postgres driver, got %s", cfg.Repository.Driver)
	}
	if cfg.EventBus.Type != "nats" {
		t.Errorf("expected nats bus, got %s", cfg.EventBus.Type)
	}
	if !cfg.Telemetry.AsyncWorker {
		t.Error("expected async worker in pro tier")
	}
}

func TestLoadConfigInvalidMode(t *testing.T) {
	v := viper.New()
	v.Set("mode", "bayesian")

	if _, err := LoadConfig(v); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "motordiag.yaml")
	content := `
server:
  port: 7070
cache:
  type: memory
  localTTL: 30s
knowledge:
  path: ""
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCmd(t, "--config", path, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "port: 7070") {
		t.Errorf("expected port from file, got:\n%s", out)
	}
	if !strings.Contains(out, "localTtl: 30s") {
		t.Errorf("expected localTTL from file, got:\n%s", out)
	}
}

func TestConfigShowRedactsPasswords(t *testing.T) {
	t.Setenv("MOTORDIAG_REPOSITORY_POSTGRESPASSWORD", "hunter2")

	out, err := runCmd(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "hunter2") {
		t.Errorf("password leaked:\n%s", out)
	}
	if !strings.Contains(out, "postgresPassword: '******'") && !strings.Contains(out, `postgresPassword: "******"`) {
		t.Errorf("expected masked password, got:\n%s", out)
	}
}

func TestMissingConfigFile(t *testing.T) {
	_, err := runCmd(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "config", "show")
	if err == nil {
		t.Fatal("expected error for explicit missing config file")
	}
}

func TestDiagnoseCommand(t *testing.T) {
	out, err := runCmd(t, "diagnose", "--answer", "5=yes")
	if err != nil {
		t.Fatalf("diagnose: %v", err)
	}
	for _, want := range []string{"R5", "Burnt stator winding", "90.0%", "Severe", "Recommended actions"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestDiagnoseCommandJSON(t *testing.T) {
	out, err := runCmd(t, "diagnose", "-a", "3=Jarang", "--json")
	if err != nil {
		t.Fatalf("diagnose: %v", err)
	}

	var d domain.Diagnosis
	if err := json.Unmarshal([]byte(out), &d); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if d.Mode != domain.ModeForward {
		t.Errorf("expected forward mode, got %s", d.Mode)
	}
	if d.Summary == nil || d.Summary.DamageType != "Supply voltage drop" {
		t.Fatalf("unexpected summary: %+v", d.Summary)
	}
	if d.Summary.Label != domain.LabelLight {
		t.Errorf("expected Light, got %s", d.Summary.Label)
	}
}

func TestDiagnoseCommandFuzzy(t *testing.T) {
	out, err := runCmd(t, "diagnose", "-a", "2=yes", "-a", "9=yes", "--mode", "fuzzy")
	if err != nil {
		t.Fatalf("diagnose: %v", err)
	}
	if !strings.Contains(out, "Mode: fuzzy") {
		t.Errorf("expected fuzzy mode:\n%s", out)
	}
	if !strings.Contains(out, "Defuzzified severity") {
		t.Errorf("expected defuzzified value:\n%s", out)
	}
}

func TestDiagnoseCommandNoMatch(t *testing.T) {
	out, err := runCmd(t, "diagnose", "-a", "1=no")
	if err != nil {
		t.Fatalf("diagnose: %v", err)
	}
	if !strings.Contains(out, "No fault matched") {
		t.Errorf("expected no-match message:\n%s", out)
	}
}

func TestDiagnoseCommandRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing separator", []string{"-a", "5yes"}},
		{"bad answer", []string{"-a", "5=maybe"}},
		{"bad id", []string{"-a", "five=yes"}},
		{"bad mode", []string{"-a", "5=yes", "--mode", "bayesian"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"diagnose"}, tt.args...)
			if _, err := runCmd(t, args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDiagnoseQuestions(t *testing.T) {
	out, err := runCmd(t, "diagnose", "--questions")
	if err != nil {
		t.Fatalf("diagnose --questions: %v", err)
	}
	// header plus ten symptoms
	if lines := strings.Count(strings.TrimSpace(out), "\n") + 1; lines != 11 {
		t.Errorf("expected 11 lines, got %d:\n%s", lines, out)
	}
}

func TestKnowledgeExportAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yaml")

	out, err := runCmd(t, "knowledge", "export", "--out", path)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, "wrote "+path) {
		t.Errorf("unexpected export output: %s", out)
	}

	out, err = runCmd(t, "knowledge", "validate", path)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "10 symptoms, 14 rules") {
		t.Errorf("unexpected validate output: %s", out)
	}
	if strings.Contains(out, "warning") {
		t.Errorf("default catalog should resolve every symptom: %s", out)
	}
}

func TestKnowledgeValidateWarnsOnUnknownSymptom(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yaml")
	content := `
version: 1
symptoms:
  - id: 1
    question: Does the motor hum?
    cfExpert: 0.8
rules:
  - id: R1
    symptoms: [1, 42]
    operator: OR
    level: A
    damage: Loose mounting
    solution: Tighten the mounting bolts.
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCmd(t, "knowledge", "validate", path)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "rule R1 references unknown symptoms [42]") {
		t.Errorf("expected warning, got: %s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCmd(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "motordiag 1.2.3 (commit abc123") {
		t.Errorf("unexpected version output: %s", out)
	}
}

func TestNewLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	newLogger(domain.LoggingConfig{Level: "info", Format: "json"}, &buf).Info("hello", "motor", "m1")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("expected JSON log line, got %q", buf.String())
	}

	buf.Reset()
	newLogger(domain.LoggingConfig{Level: "warn", Format: "text"}, &buf).Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered at warn level, got %q", buf.String())
	}
}
