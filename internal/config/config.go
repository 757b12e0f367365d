// Package config manages pumpd/pumpctl configuration using koanf/v2.
//
// Supports YAML files, environment variables, and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/pumptool/tcppump/internal/addr"
	"github.com/pumptool/tcppump/internal/compilectx"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete pumpd/pumpctl configuration.
type Config struct {
	GRPC     GRPCConfig     `koanf:"grpc"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
	Compiler CompilerConfig `koanf:"compiler"`
	Sink     SinkConfig     `koanf:"sink"`
}

// GRPCConfig holds the ConnectRPC server configuration.
type GRPCConfig struct {
	// Addr is the gRPC/ConnectRPC listen address (e.g., ":50051").
	Addr string `koanf:"addr"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9100").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// CompilerConfig holds the process-wide compiler defaults that feed a
// compilectx.Context: the "own" addresses substituted for a script's
// omitted smac/sip fields, the link MTU fragmentation bounds against,
// counter-mode for reproducible test runs, and the driver's policy for
// an absolute timestamp that regresses the virtual clock.
type CompilerConfig struct {
	// OwnMAC is substituted for "smac" when a script omits it.
	OwnMAC string `koanf:"own_mac"`
	// OwnIPv4 is substituted for "sip" on IPv4 encoders.
	OwnIPv4 string `koanf:"own_ipv4"`
	// OwnIPv6 is substituted for "sip" on IPv6 encoders.
	OwnIPv6 string `koanf:"own_ipv6"`
	// Interface names the link these packets are notionally bound to.
	Interface string `koanf:"interface"`
	// MTU bounds IPv4 fragmentation.
	MTU int `koanf:"mtu"`
	// CounterMode runs the RNG in deterministic counter mode instead of
	// drawing from a real random source, for reproducible runs.
	CounterMode bool `koanf:"counter_mode"`
	// CounterSeed is the starting value for counter-mode randomization.
	CounterSeed uint64 `koanf:"counter_seed"`
	// TimeRegression is "error" or "clamp"; see TimeRegressionPolicy().
	TimeRegression string `koanf:"time_regression"`
}

// TimeRegressionPolicy parses CompilerConfig.TimeRegression into a
// compilectx.TimeRegressionPolicy, defaulting to PolicyError.
func (c CompilerConfig) TimeRegressionPolicy() (compilectx.TimeRegressionPolicy, error) {
	switch strings.ToLower(c.TimeRegression) {
	case "", "error":
		return compilectx.PolicyError, nil
	case "clamp", "clamp_to_zero":
		return compilectx.PolicyClampToZero, nil
	default:
		return 0, fmt.Errorf("compiler.time_regression %q: %w", c.TimeRegression, ErrInvalidTimeRegression)
	}
}

// BuildContext parses the configured addresses and returns a ready
// compilectx.Context, choosing a deterministic or non-deterministic RNG
// per CounterMode.
func (c CompilerConfig) BuildContext() (*compilectx.Context, error) {
	mac, err := addr.ParseMAC(c.OwnMAC)
	if err != nil {
		return nil, fmt.Errorf("compiler.own_mac %q: %w", c.OwnMAC, err)
	}

	var ip4 addr.IPv4
	if c.OwnIPv4 != "" {
		ip4, err = addr.ParseIPv4(c.OwnIPv4, nil)
		if err != nil {
			return nil, fmt.Errorf("compiler.own_ipv4 %q: %w", c.OwnIPv4, err)
		}
	}

	var ip6 addr.IPv6
	if c.OwnIPv6 != "" {
		ip6, err = addr.ParseIPv6(c.OwnIPv6)
		if err != nil {
			return nil, fmt.Errorf("compiler.own_ipv6 %q: %w", c.OwnIPv6, err)
		}
	}

	policy, err := c.TimeRegressionPolicy()
	if err != nil {
		return nil, err
	}

	var ctx *compilectx.Context
	if c.CounterMode {
		ctx = compilectx.NewDeterministic(mac, ip4, ip6, c.Interface, c.MTU, c.CounterSeed)
	} else {
		ctx = compilectx.New(mac, ip4, ip6, c.Interface, c.MTU)
	}
	ctx.TimeRegression = policy
	return ctx, nil
}

// SinkConfig selects and parameterizes the downstream packet sink.
type SinkConfig struct {
	// Kind is "rawsock", "overlay", or "pcap".
	Kind string `koanf:"kind"`
	// Interface names the NIC a rawsock sink binds to.
	Interface string `koanf:"interface"`
	// OverlayRemote is the VXLAN remote VTEP's IP address; the tunnel port
	// (4789) is fixed by the protocol, so no port is given here.
	OverlayRemote string `koanf:"overlay_remote"`
	// OverlayVNI is the VXLAN/GENEVE virtual network identifier.
	OverlayVNI uint32 `koanf:"overlay_vni"`
	// PcapPath is the output file path for the pcap sink.
	PcapPath string `koanf:"pcap_path"`
}

// ValidSinkKinds lists the recognized sink kind strings.
var ValidSinkKinds = map[string]bool{
	"rawsock": true,
	"overlay": true,
	"pcap":    true,
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		GRPC: GRPCConfig{
			Addr: ":50051",
		},
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Compiler: CompilerConfig{
			OwnMAC:         "02:00:00:00:00:01",
			MTU:            compilectx.DefaultMTU,
			TimeRegression: "error",
		},
		Sink: SinkConfig{
			Kind: "rawsock",
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for pumpd configuration.
// Variables are named PUMP_<section>_<key>, e.g., PUMP_GRPC_ADDR.
const envPrefix = "PUMP_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (PUMP_ prefix), and merges on top of DefaultConfig().
// Missing fields inherit defaults.
//
// Environment variable mapping:
//
//	PUMP_GRPC_ADDR        -> grpc.addr
//	PUMP_METRICS_ADDR     -> metrics.addr
//	PUMP_METRICS_PATH     -> metrics.path
//	PUMP_LOG_LEVEL        -> log.level
//	PUMP_LOG_FORMAT       -> log.format
//	PUMP_COMPILER_OWN_MAC -> compiler.own_mac
//
// Uses koanf/v2 with file + env providers and YAML parser.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms PUMP_GRPC_ADDR -> grpc.addr.
// Strips the PUMP_ prefix, lowercases, and replaces the first _ (the
// section separator) with ., so PUMP_COMPILER_OWN_MAC -> compiler.own_mac.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.Replace(s, "_", ".", 1)
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"grpc.addr":                defaults.GRPC.Addr,
		"metrics.addr":             defaults.Metrics.Addr,
		"metrics.path":             defaults.Metrics.Path,
		"log.level":                defaults.Log.Level,
		"log.format":               defaults.Log.Format,
		"compiler.own_mac":         defaults.Compiler.OwnMAC,
		"compiler.own_ipv4":        defaults.Compiler.OwnIPv4,
		"compiler.own_ipv6":        defaults.Compiler.OwnIPv6,
		"compiler.interface":       defaults.Compiler.Interface,
		"compiler.mtu":             defaults.Compiler.MTU,
		"compiler.counter_mode":    defaults.Compiler.CounterMode,
		"compiler.counter_seed":    defaults.Compiler.CounterSeed,
		"compiler.time_regression": defaults.Compiler.TimeRegression,
		"sink.kind":                defaults.Sink.Kind,
		"sink.interface":           defaults.Sink.Interface,
		"sink.overlay_remote":      defaults.Sink.OverlayRemote,
		"sink.overlay_vni":         defaults.Sink.OverlayVNI,
		"sink.pcap_path":           defaults.Sink.PcapPath,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	// ErrEmptyGRPCAddr indicates the gRPC listen address is empty.
	ErrEmptyGRPCAddr = errors.New("grpc.addr must not be empty")

	// ErrInvalidMTU indicates the compiler MTU is non-positive.
	ErrInvalidMTU = errors.New("compiler.mtu must be > 0")

	// ErrInvalidOwnMAC indicates the configured own MAC does not parse.
	ErrInvalidOwnMAC = errors.New("compiler.own_mac is invalid")

	// ErrInvalidTimeRegression indicates an unrecognized time_regression value.
	ErrInvalidTimeRegression = errors.New("compiler.time_regression must be \"error\" or \"clamp\"")

	// ErrInvalidSinkKind indicates an unrecognized sink kind.
	ErrInvalidSinkKind = errors.New("sink.kind must be rawsock, overlay, or pcap")

	// ErrEmptyOverlayRemote indicates an overlay sink with no remote endpoint.
	ErrEmptyOverlayRemote = errors.New("sink.overlay_remote must not be empty for an overlay sink")

	// ErrEmptyPcapPath indicates a pcap sink with no output path.
	ErrEmptyPcapPath = errors.New("sink.pcap_path must not be empty for a pcap sink")
)

// Validate checks the configuration for logical errors. Returns the
// first validation error encountered.
func Validate(cfg *Config) error {
	if cfg.GRPC.Addr == "" {
		return ErrEmptyGRPCAddr
	}

	if cfg.Compiler.MTU <= 0 {
		return ErrInvalidMTU
	}

	if _, err := addr.ParseMAC(cfg.Compiler.OwnMAC); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOwnMAC, err)
	}

	if _, err := cfg.Compiler.TimeRegressionPolicy(); err != nil {
		return err
	}

	if err := validateSink(cfg.Sink); err != nil {
		return err
	}

	return nil
}

func validateSink(sc SinkConfig) error {
	if !ValidSinkKinds[sc.Kind] {
		return fmt.Errorf("sink.kind %q: %w", sc.Kind, ErrInvalidSinkKind)
	}
	if sc.Kind == "overlay" && sc.OverlayRemote == "" {
		return ErrEmptyOverlayRemote
	}
	if sc.Kind == "pcap" && sc.PcapPath == "" {
		return ErrEmptyPcapPath
	}
	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
//
// Recognized values: "debug", "info", "warn", "error" (case-insensitive).
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
