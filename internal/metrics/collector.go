// Package metrics exposes Prometheus metrics for the instruction
// compiler: how many instructions were compiled (and of which protocol),
// how many failed (and of which error kind), how many frames and IPv4
// fragments were emitted, and how many sink sends failed.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const (
	namespace = "pump"
	subsystem = "compiler"
)

// Label names for compiler metrics.
const (
	labelIdentifier = "identifier"
	labelErrorKind  = "kind"
	labelSinkKind   = "sink_kind"
)

// -------------------------------------------------------------------------
// Collector — Prometheus Compiler Metrics
// -------------------------------------------------------------------------

// Collector holds all compiler Prometheus metrics.
//
//   - ActiveDrivers tracks in-flight compile runs (one per script/file/
//     inline-list invocation).
//   - InstructionsCompiled / ParseErrors count successes and failures by
//     protocol identifier and error kind respectively.
//   - FramesEmitted / FragmentsEmitted track the volume of wire output.
//   - SinkSendErrors flags downstream transmission failures per sink kind.
type Collector struct {
	// ActiveDrivers tracks the number of currently running compile
	// pipelines. Incremented when a driver begins a compile, decremented
	// when it finishes.
	ActiveDrivers prometheus.Gauge

	// InstructionsCompiled counts successfully compiled instructions,
	// labeled by protocol identifier ("udp", "tcp-syn", "arp-probe", ...).
	InstructionsCompiled *prometheus.CounterVec

	// ParseErrors counts failed instructions, labeled by error kind
	// (Syntax, UnknownParameter, RangeViolation, BadFormat,
	// UnusedParameter, FragmentationImpossible, RecursionLimit,
	// IOFailure, TimeRegression).
	ParseErrors *prometheus.CounterVec

	// FramesEmitted counts Ethernet frames produced, labeled by protocol
	// identifier. A single instruction can emit more than one frame
	// (IPv4 fragmentation, multi-frame encoders).
	FramesEmitted *prometheus.CounterVec

	// FragmentsEmitted counts IPv4 fragments produced across all
	// instructions.
	FragmentsEmitted prometheus.Counter

	// SinkSendErrors counts failed sink.Send calls, labeled by sink kind
	// ("rawsock", "overlay", "pcap").
	SinkSendErrors *prometheus.CounterVec
}

// NewCollector creates a Collector with all compiler metrics registered
// against the provided prometheus.Registerer. If reg is nil,
// prometheus.DefaultRegisterer is used.
//
// All metrics are created with the "pump_compiler_" prefix
// (namespace_subsystem) to avoid collisions with other exporters.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.ActiveDrivers,
		c.InstructionsCompiled,
		c.ParseErrors,
		c.FramesEmitted,
		c.FragmentsEmitted,
		c.SinkSendErrors,
	)

	return c
}

// newMetrics creates all Prometheus metric vectors without registering them.
func newMetrics() *Collector {
	identifierLabels := []string{labelIdentifier}

	return &Collector{
		ActiveDrivers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_drivers",
			Help:      "Number of currently running compile pipelines.",
		}),

		InstructionsCompiled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "instructions_compiled_total",
			Help:      "Total instructions successfully compiled, by protocol identifier.",
		}, identifierLabels),

		ParseErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "parse_errors_total",
			Help:      "Total instruction compile failures, by error kind.",
		}, []string{labelErrorKind}),

		FramesEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "frames_emitted_total",
			Help:      "Total Ethernet frames emitted, by protocol identifier.",
		}, identifierLabels),

		FragmentsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "fragments_emitted_total",
			Help:      "Total IPv4 fragments emitted across all instructions.",
		}),

		SinkSendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sink_send_errors_total",
			Help:      "Total sink.Send failures, by sink kind.",
		}, []string{labelSinkKind}),
	}
}

// -------------------------------------------------------------------------
// Driver Lifecycle
// -------------------------------------------------------------------------

// RegisterDriverStart increments the active-drivers gauge. Called when a
// driver begins compiling a script, file, or inline instruction set.
func (c *Collector) RegisterDriverStart() {
	c.ActiveDrivers.Inc()
}

// RegisterDriverDone decrements the active-drivers gauge. Called when a
// driver's compile run finishes, successfully or not.
func (c *Collector) RegisterDriverDone() {
	c.ActiveDrivers.Dec()
}

// -------------------------------------------------------------------------
// Instructions and Errors
// -------------------------------------------------------------------------

// IncInstructionsCompiled increments the compiled-instructions counter
// for the given protocol identifier.
func (c *Collector) IncInstructionsCompiled(identifier string) {
	c.InstructionsCompiled.WithLabelValues(identifier).Inc()
}

// IncParseError increments the parse-errors counter for the given error
// kind.
func (c *Collector) IncParseError(kind string) {
	c.ParseErrors.WithLabelValues(kind).Inc()
}

// -------------------------------------------------------------------------
// Frames and Fragments
// -------------------------------------------------------------------------

// AddFramesEmitted adds n to the frames-emitted counter for the given
// protocol identifier.
func (c *Collector) AddFramesEmitted(identifier string, n int) {
	c.FramesEmitted.WithLabelValues(identifier).Add(float64(n))
}

// AddFragmentsEmitted adds n to the IPv4 fragments-emitted counter.
func (c *Collector) AddFragmentsEmitted(n int) {
	c.FragmentsEmitted.Add(float64(n))
}

// -------------------------------------------------------------------------
// Sink
// -------------------------------------------------------------------------

// IncSinkSendErrors increments the sink-send-errors counter for the
// given sink kind.
func (c *Collector) IncSinkSendErrors(kind string) {
	c.SinkSendErrors.WithLabelValues(kind).Inc()
}
