package gotensor

import (
	"log/slog"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ============================================================
// Engine
// ============================================================

// Engine is the context every expression is built in. It owns the symbol
// registry together with configuration, logging, metrics and tracing.
// An Engine is safe for concurrent use.
type Engine struct {
	cfg      Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics
	tracer   trace.Tracer

	mu      sync.RWMutex
	symbols map[string]*Symbol
	nextID  int
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRegistry registers the engine's metrics with reg instead of a fresh
// private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(e *Engine) { e.registry = reg }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracer = tp.Tracer("github.com/njchilds90/gotensor") }
}

func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{cfg: cfg, symbols: make(map[string]*Symbol)}
	for _, o := range opts {
		o(e)
	}
	if e.logger == nil {
		e.logger = newLogger(cfg.Log, os.Stderr)
	}
	if e.registry == nil {
		e.registry = prometheus.NewRegistry()
	}
	if e.tracer == nil {
		e.tracer = noop.NewTracerProvider().Tracer("github.com/njchilds90/gotensor")
	}
	m, err := newMetrics(e.registry)
	if err != nil {
		return nil, err
	}
	e.metrics = m
	return e, nil
}

// MustEngine is NewEngine for a known-good config.
func MustEngine(cfg Config, opts ...Option) *Engine {
	e, err := NewEngine(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Engine) Config() Config                 { return e.cfg }
func (e *Engine) Registry() *prometheus.Registry { return e.registry }
func (e *Engine) Logger() *slog.Logger           { return e.log() }

func (e *Engine) log() *slog.Logger {
	if e == nil {
		return discardLogger
	}
	return e.logger
}

func (e *Engine) m() *metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

func (e *Engine) strictSelfContraction() bool {
	return e != nil && e.cfg.Mapping.StrictSelfContraction
}

// Symbols returns the declared symbols in declaration order.
func (e *Engine) Symbols() []*Symbol {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Symbol, 0, len(e.symbols))
	for _, s := range e.symbols {
		out = append(out, s)
	}
	sortSymbols(out)
	return out
}
