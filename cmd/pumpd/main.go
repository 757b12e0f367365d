// pumpd -- scriptable packet compiler/transmitter daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/pumptool/tcppump/internal/addr"
	"github.com/pumptool/tcppump/internal/compilectx"
	"github.com/pumptool/tcppump/internal/config"
	"github.com/pumptool/tcppump/internal/control"
	"github.com/pumptool/tcppump/internal/driver"
	"github.com/pumptool/tcppump/internal/ifinfo"
	"github.com/pumptool/tcppump/internal/metrics"
	"github.com/pumptool/tcppump/internal/sink"
	"github.com/pumptool/tcppump/internal/sink/overlay"
	"github.com/pumptool/tcppump/internal/sink/pcapfile"
	"github.com/pumptool/tcppump/internal/sink/rawsock"
	appversion "github.com/pumptool/tcppump/internal/version"
)

// shutdownTimeout is the maximum time to wait for the control-plane HTTP
// server to drain active connections during graceful shutdown.
const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to configuration file (YAML)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load configuration",
			slog.String("error", err.Error()),
		)
		return 1
	}

	logLevel := new(slog.LevelVar)
	logLevel.Set(config.ParseLogLevel(cfg.Log.Level))
	logger := newLoggerWithLevel(cfg.Log, logLevel)

	logger.Info("pumpd starting",
		slog.String("version", appversion.Version),
		slog.String("grpc_addr", cfg.GRPC.Addr),
		slog.String("metrics_addr", cfg.Metrics.Addr),
		slog.String("sink_kind", cfg.Sink.Kind),
	)

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	if err := runServers(cfg, collector, reg, logger); err != nil {
		logger.Error("pumpd exited with error", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("pumpd stopped")
	return 0
}

// runServers opens the configured sink, builds the control-plane RPC
// server and metrics endpoint, and runs them under an errgroup with a
// signal-aware context for graceful shutdown.
func runServers(cfg *config.Config, collector *metrics.Collector, reg *prometheus.Registry, logger *slog.Logger) error {
	sk, err := openSink(cfg.Sink)
	if err != nil {
		return fmt.Errorf("open sink: %w", err)
	}
	defer closeSink(sk, logger)

	newContext := contextFactory(cfg.Compiler)

	svc := control.NewService(newContext, driver.Options{Logger: logger}, sk, collector)
	grpcSrv := newControlServer(cfg.GRPC, svc, logger)
	metricsSrv := newMetricsServer(cfg.Metrics, reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	lc := net.ListenConfig{}
	g.Go(func() error {
		logger.Info("control server listening", slog.String("addr", cfg.GRPC.Addr))
		return listenAndServe(gCtx, &lc, grpcSrv, cfg.GRPC.Addr)
	})
	g.Go(func() error {
		logger.Info("metrics server listening", slog.String("addr", cfg.Metrics.Addr))
		return listenAndServe(gCtx, &lc, metricsSrv, cfg.Metrics.Addr)
	})

	notifyReady(logger)

	g.Go(func() error {
		<-gCtx.Done()
		return gracefulShutdown(gCtx, logger, grpcSrv, metricsSrv)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run servers: %w", err)
	}
	return nil
}

// contextFactory builds a control.ContextFactory that resolves own
// addresses from compiler config overrides falling back to the NIC named
// by compiler.interface, per the "own MAC / own IPv4 / own IPv6 / MTU /
// interface name" block populated from CLI flags or the NIC driver.
func contextFactory(cc config.CompilerConfig) control.ContextFactory {
	return func() (*compilectx.Context, error) {
		if cc.Interface == "" {
			return cc.BuildContext()
		}

		info, err := ifinfo.Resolve(cc.Interface, overridesFromConfig(cc))
		if err != nil {
			return cc.BuildContext()
		}

		policy, err := cc.TimeRegressionPolicy()
		if err != nil {
			return nil, err
		}

		var ctx *compilectx.Context
		if cc.CounterMode {
			ctx = compilectx.NewDeterministic(info.MAC, info.IPv4, info.IPv6, info.Name, info.MTU, cc.CounterSeed)
		} else {
			ctx = compilectx.New(info.MAC, info.IPv4, info.IPv6, info.Name, info.MTU)
		}
		ctx.TimeRegression = policy
		return ctx, nil
	}
}

// overridesFromConfig turns any explicitly configured own-address fields
// into ifinfo.Overrides, so a configured value always wins over the NIC's
// own, matching contextFactory's "CLI flags or the NIC driver" fallback.
func overridesFromConfig(cc config.CompilerConfig) ifinfo.Overrides {
	var o ifinfo.Overrides
	if cc.OwnMAC != "" {
		if mac, err := addr.ParseMAC(cc.OwnMAC); err == nil {
			o.MAC = &mac
		}
	}
	if cc.OwnIPv4 != "" {
		if ip4, err := addr.ParseIPv4(cc.OwnIPv4, nil); err == nil {
			o.IPv4 = &ip4
		}
	}
	if cc.OwnIPv6 != "" {
		if ip6, err := addr.ParseIPv6(cc.OwnIPv6); err == nil {
			o.IPv6 = &ip6
		}
	}
	o.MTU = cc.MTU
	return o
}

// openSink constructs the configured downstream sink. A nil sink with a
// nil error is never returned; sc.Kind is validated by config.Validate
// before this is called.
func openSink(sc config.SinkConfig) (sink.Sink, error) {
	switch sc.Kind {
	case "rawsock":
		return rawsock.Open(sc.Interface, rawsock.WithRealTimePacing())
	case "overlay":
		remote, err := netip.ParseAddr(sc.OverlayRemote)
		if err != nil {
			return nil, fmt.Errorf("parse sink.overlay_remote %q: %w", sc.OverlayRemote, err)
		}
		return overlay.Open(netip.IPv4Unspecified(), remote, sc.OverlayVNI)
	case "pcap":
		return pcapfile.Create(sc.PcapPath, time.Now())
	default:
		return nil, fmt.Errorf("unknown sink kind %q", sc.Kind)
	}
}

func closeSink(sk sink.Sink, logger *slog.Logger) {
	closer, ok := sk.(interface{ Close() error })
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Warn("failed to close sink", slog.String("error", err.Error()))
	}
}

// notifyReady sends READY=1 to systemd, indicating pumpd has completed
// initialization and is ready to serve.
func notifyReady(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		logger.Warn("failed to notify systemd readiness", slog.String("error", err.Error()))
		return
	}
	if sent {
		logger.Info("notified systemd: READY")
	}
}

// notifyStopping sends STOPPING=1 to systemd, indicating pumpd is
// beginning graceful shutdown.
func notifyStopping(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err != nil {
		logger.Warn("failed to notify systemd stopping", slog.String("error", err.Error()))
		return
	}
	if sent {
		logger.Info("notified systemd: STOPPING")
	}
}

// gracefulShutdown signals systemd and shuts down the HTTP servers
// within shutdownTimeout.
func gracefulShutdown(ctx context.Context, logger *slog.Logger, servers ...*http.Server) error {
	logger.Info("initiating graceful shutdown")
	notifyStopping(logger)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	var shutdownErr error
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			shutdownErr = errors.Join(shutdownErr, fmt.Errorf("shutdown server: %w", err))
		}
	}
	return shutdownErr
}

func listenAndServe(ctx context.Context, lc *net.ListenConfig, srv *http.Server, listenAddr string) error {
	ln, err := lc.Listen(ctx, "tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddr, err)
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve on %s: %w", listenAddr, err)
	}
	return nil
}

func newMetricsServer(cfg config.MetricsConfig, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// newControlServer builds the HTTP server for the Compile RPC and health
// check, wrapped with h2c so plaintext HTTP/2 clients (e.g. pumpctl) can
// connect without TLS.
func newControlServer(cfg config.GRPCConfig, svc *control.Service, logger *slog.Logger) *http.Server {
	handler := control.New(svc, logger)
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
		return cfg, nil
	}
	return config.DefaultConfig(), nil
}

func newLoggerWithLevel(cfg config.LogConfig, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
