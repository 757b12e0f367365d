package config_test

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/pumptool/tcppump/internal/compilectx"
	"github.com/pumptool/tcppump/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()

	if cfg.GRPC.Addr != ":50051" {
		t.Errorf("GRPC.Addr = %q, want %q", cfg.GRPC.Addr, ":50051")
	}

	if cfg.Metrics.Addr != ":9100" {
		t.Errorf("Metrics.Addr = %q, want %q", cfg.Metrics.Addr, ":9100")
	}

	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q, want %q", cfg.Metrics.Path, "/metrics")
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}

	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "json")
	}

	if cfg.Compiler.MTU != compilectx.DefaultMTU {
		t.Errorf("Compiler.MTU = %d, want %d", cfg.Compiler.MTU, compilectx.DefaultMTU)
	}

	if cfg.Sink.Kind != "rawsock" {
		t.Errorf("Sink.Kind = %q, want %q", cfg.Sink.Kind, "rawsock")
	}

	// Defaults must pass validation.
	if err := config.Validate(cfg); err != nil {
		t.Errorf("DefaultConfig() failed validation: %v", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	t.Parallel()

	yamlContent := `
grpc:
  addr: ":60000"
metrics:
  addr: ":9200"
  path: "/custom-metrics"
log:
  level: "debug"
  format: "text"
compiler:
  own_mac: "aa:bb:cc:dd:ee:ff"
  own_ipv4: "10.0.0.1"
  mtu: 9000
  counter_mode: true
  counter_seed: 7
  time_regression: "clamp"
sink:
  kind: "pcap"
  pcap_path: "/tmp/out.pcap"
`

	path := writeTemp(t, yamlContent)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.GRPC.Addr != ":60000" {
		t.Errorf("GRPC.Addr = %q, want %q", cfg.GRPC.Addr, ":60000")
	}

	if cfg.Metrics.Addr != ":9200" {
		t.Errorf("Metrics.Addr = %q, want %q", cfg.Metrics.Addr, ":9200")
	}

	if cfg.Metrics.Path != "/custom-metrics" {
		t.Errorf("Metrics.Path = %q, want %q", cfg.Metrics.Path, "/custom-metrics")
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}

	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "text")
	}

	if cfg.Compiler.OwnMAC != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("Compiler.OwnMAC = %q, want %q", cfg.Compiler.OwnMAC, "aa:bb:cc:dd:ee:ff")
	}

	if cfg.Compiler.MTU != 9000 {
		t.Errorf("Compiler.MTU = %d, want 9000", cfg.Compiler.MTU)
	}

	if !cfg.Compiler.CounterMode {
		t.Error("Compiler.CounterMode = false, want true")
	}

	if cfg.Sink.Kind != "pcap" {
		t.Errorf("Sink.Kind = %q, want %q", cfg.Sink.Kind, "pcap")
	}

	if cfg.Sink.PcapPath != "/tmp/out.pcap" {
		t.Errorf("Sink.PcapPath = %q, want %q", cfg.Sink.PcapPath, "/tmp/out.pcap")
	}
}

func TestLoadMergesDefaults(t *testing.T) {
	t.Parallel()

	// Partial YAML: only override grpc.addr and log.level.
	// Everything else should inherit from defaults.
	yamlContent := `
grpc:
  addr: ":55555"
log:
  level: "warn"
`

	path := writeTemp(t, yamlContent)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	// Overridden values.
	if cfg.GRPC.Addr != ":55555" {
		t.Errorf("GRPC.Addr = %q, want %q", cfg.GRPC.Addr, ":55555")
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "warn")
	}

	// Default values should be preserved.
	if cfg.Metrics.Addr != ":9100" {
		t.Errorf("Metrics.Addr = %q, want default %q", cfg.Metrics.Addr, ":9100")
	}

	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q, want default %q", cfg.Metrics.Path, "/metrics")
	}

	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want default %q", cfg.Log.Format, "json")
	}

	if cfg.Compiler.MTU != compilectx.DefaultMTU {
		t.Errorf("Compiler.MTU = %d, want default %d", cfg.Compiler.MTU, compilectx.DefaultMTU)
	}

	if cfg.Sink.Kind != "rawsock" {
		t.Errorf("Sink.Kind = %q, want default %q", cfg.Sink.Kind, "rawsock")
	}
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*config.Config)
		wantErr error
	}{
		{
			name: "empty grpc addr",
			modify: func(cfg *config.Config) {
				cfg.GRPC.Addr = ""
			},
			wantErr: config.ErrEmptyGRPCAddr,
		},
		{
			name: "zero mtu",
			modify: func(cfg *config.Config) {
				cfg.Compiler.MTU = 0
			},
			wantErr: config.ErrInvalidMTU,
		},
		{
			name: "negative mtu",
			modify: func(cfg *config.Config) {
				cfg.Compiler.MTU = -1
			},
			wantErr: config.ErrInvalidMTU,
		},
		{
			name: "invalid own mac",
			modify: func(cfg *config.Config) {
				cfg.Compiler.OwnMAC = "not-a-mac"
			},
			wantErr: config.ErrInvalidOwnMAC,
		},
		{
			name: "invalid time regression",
			modify: func(cfg *config.Config) {
				cfg.Compiler.TimeRegression = "bogus"
			},
			wantErr: config.ErrInvalidTimeRegression,
		},
		{
			name: "invalid sink kind",
			modify: func(cfg *config.Config) {
				cfg.Sink.Kind = "bogus"
			},
			wantErr: config.ErrInvalidSinkKind,
		},
		{
			name: "overlay sink without remote",
			modify: func(cfg *config.Config) {
				cfg.Sink.Kind = "overlay"
				cfg.Sink.OverlayRemote = ""
			},
			wantErr: config.ErrEmptyOverlayRemote,
		},
		{
			name: "pcap sink without path",
			modify: func(cfg *config.Config) {
				cfg.Sink.Kind = "pcap"
				cfg.Sink.PcapPath = ""
			},
			wantErr: config.ErrEmptyPcapPath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.DefaultConfig()
			tt.modify(cfg)

			err := config.Validate(cfg)
			if err == nil {
				t.Fatal("Validate() returned nil, want error")
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  slog.Level
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "DEBUG", want: slog.LevelDebug},
		{input: "info", want: slog.LevelInfo},
		{input: "INFO", want: slog.LevelInfo},
		{input: "warn", want: slog.LevelWarn},
		{input: "WARN", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "Error", want: slog.LevelError},
		{input: "unknown", want: slog.LevelInfo},
		{input: "", want: slog.LevelInfo},
		{input: "trace", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got := config.ParseLogLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoadNonexistentFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load("/nonexistent/path/config.yml")
	if err == nil {
		t.Fatal("Load() returned nil error for nonexistent file")
	}
}

// -------------------------------------------------------------------------
// Compiler context construction tests
// -------------------------------------------------------------------------

func TestCompilerConfigBuildContext(t *testing.T) {
	t.Parallel()

	cc := config.CompilerConfig{
		OwnMAC:         "aa:bb:cc:dd:ee:ff",
		OwnIPv4:        "10.0.0.1",
		MTU:            1400,
		CounterMode:    true,
		CounterSeed:    3,
		TimeRegression: "clamp",
	}

	ctx, err := cc.BuildContext()
	if err != nil {
		t.Fatalf("BuildContext() error: %v", err)
	}

	if ctx.MTU != 1400 {
		t.Errorf("MTU = %d, want 1400", ctx.MTU)
	}

	if ctx.TimeRegression != compilectx.PolicyClampToZero {
		t.Errorf("TimeRegression = %v, want PolicyClampToZero", ctx.TimeRegression)
	}
}

func TestCompilerConfigBuildContextRejectsBadMAC(t *testing.T) {
	t.Parallel()

	cc := config.CompilerConfig{OwnMAC: "not-a-mac", MTU: 1500}
	if _, err := cc.BuildContext(); err == nil {
		t.Fatal("BuildContext() returned nil error for invalid MAC")
	}
}

func TestTimeRegressionPolicyDefaultsToError(t *testing.T) {
	t.Parallel()

	cc := config.CompilerConfig{}
	policy, err := cc.TimeRegressionPolicy()
	if err != nil {
		t.Fatalf("TimeRegressionPolicy() error: %v", err)
	}
	if policy != compilectx.PolicyError {
		t.Errorf("TimeRegressionPolicy() = %v, want PolicyError", policy)
	}
}

// -------------------------------------------------------------------------
// Environment Variable Override Tests
// -------------------------------------------------------------------------

func TestLoadEnvOverrides(t *testing.T) {
	// Environment variable tests cannot be parallel because they modify
	// process-wide state (os.Setenv).

	yamlContent := `
grpc:
  addr: ":50051"
log:
  level: "info"
`
	path := writeTemp(t, yamlContent)

	t.Setenv("PUMP_GRPC_ADDR", ":60000")
	t.Setenv("PUMP_LOG_LEVEL", "debug")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.GRPC.Addr != ":60000" {
		t.Errorf("GRPC.Addr = %q, want %q (from env)", cfg.GRPC.Addr, ":60000")
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q (from env)", cfg.Log.Level, "debug")
	}
}

func TestLoadEnvOverridesMetrics(t *testing.T) {
	yamlContent := `
grpc:
  addr: ":50051"
metrics:
  addr: ":9100"
  path: "/metrics"
`
	path := writeTemp(t, yamlContent)

	t.Setenv("PUMP_METRICS_ADDR", ":9200")
	t.Setenv("PUMP_METRICS_PATH", "/custom")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.Metrics.Addr != ":9200" {
		t.Errorf("Metrics.Addr = %q, want %q (from env)", cfg.Metrics.Addr, ":9200")
	}

	if cfg.Metrics.Path != "/custom" {
		t.Errorf("Metrics.Path = %q, want %q (from env)", cfg.Metrics.Path, "/custom")
	}
}

func TestLoadEnvOverridesCompiler(t *testing.T) {
	yamlContent := `
grpc:
  addr: ":50051"
`
	path := writeTemp(t, yamlContent)

	t.Setenv("PUMP_COMPILER_OWN_MAC", "11:22:33:44:55:66")
	t.Setenv("PUMP_COMPILER_MTU", "1400")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.Compiler.OwnMAC != "11:22:33:44:55:66" {
		t.Errorf("Compiler.OwnMAC = %q, want %q (from env)", cfg.Compiler.OwnMAC, "11:22:33:44:55:66")
	}

	if cfg.Compiler.MTU != 1400 {
		t.Errorf("Compiler.MTU = %d, want 1400 (from env)", cfg.Compiler.MTU)
	}
}

// writeTemp creates a temporary YAML file and returns its path.
// The file is automatically cleaned up when the test finishes.
func writeTemp(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "pumpd.yml")

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	return path
}
