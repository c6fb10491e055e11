package meta

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/tablemeta/internal/discovery"
	"github.com/mesh-intelligence/tablemeta/internal/intercept"
	"github.com/mesh-intelligence/tablemeta/internal/registry"
	"github.com/mesh-intelligence/tablemeta/pkg/types"
)

// ErrStarted is returned when a logger is supplied after the first metadata
// operation already built the process state.
var ErrStarted = errors.New("meta: logger must be set before first use")

// system is the process-wide state: one registry, one discovery catalog and
// one interceptor.
type system struct {
	logger      *zap.Logger
	reg         *registry.Registry
	catalog     *discovery.Catalog
	interceptor *intercept.Interceptor
}

var (
	startOnce sync.Once
	current   atomic.Pointer[system]

	settings struct {
		mu          sync.Mutex
		logger      *zap.Logger
		compression string
	}
)

// start builds the process state and installs interception for every kind
// on first call.
func start() *system {
	startOnce.Do(func() {
		settings.mu.Lock()
		logger := settings.logger
		settings.mu.Unlock()
		if logger == nil {
			logger = zap.NewNop()
		}

		s := &system{logger: logger}
		s.reg = registry.New(registry.WithLogger(logger.Named("registry")))
		s.catalog = discovery.New(discovery.WithLogger(logger.Named("discovery")))
		s.interceptor = intercept.New(s.reg, s.catalog, intercept.WithLogger(logger.Named("intercept")))
		hooks := s.interceptor.InstallAll()
		logger.Debug("metadata propagation started", zap.Int("hooks", hooks))
		current.Store(s)
	})
	return current.Load()
}

func started() bool {
	return current.Load() != nil
}

// Install discovers and hooks the engine's operations now instead of on
// first use. Calling it again does nothing.
func Install() {
	start()
}

// Option configures Configure.
type Option func(*configureOptions)

type configureOptions struct {
	logger *zap.Logger
}

// WithLogger sets the logger for all metadata components. It only takes
// effect before the first metadata operation.
func WithLogger(l *zap.Logger) Option {
	return func(o *configureOptions) {
		o.logger = l
	}
}

// Configure applies cfg to the process-wide state. Unset fields keep their
// current values. It fails with a types sentinel if cfg is invalid and with
// ErrStarted if a logger is given after first use.
func Configure(cfg types.Config, opts ...Option) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configure: %w", err)
	}
	var o configureOptions
	for _, opt := range opts {
		opt(&o)
	}

	settings.mu.Lock()
	if o.logger != nil {
		if started() {
			settings.mu.Unlock()
			return ErrStarted
		}
		settings.logger = o.logger
	}
	if cfg.Compression != "" {
		settings.compression = cfg.Compression
	}
	settings.mu.Unlock()

	s := start()
	if cfg.AutoPreserve != nil {
		if *cfg.AutoPreserve {
			s.interceptor.Enable()
		} else {
			s.interceptor.Disable()
		}
	}
	if cfg.MergePriority != "" {
		s.interceptor.SetPriority(cfg.MergePriority)
	}
	s.logger.Debug("configured",
		zap.Bool("auto_preserve", s.interceptor.Enabled()),
		zap.String("merge_priority", string(s.interceptor.Priority())),
		zap.String("compression", defaultCompression()))
	return nil
}

// EnableAutoPreserve makes direct engine calls propagate metadata. This is
// the default.
func EnableAutoPreserve() {
	start().interceptor.Enable()
}

// DisableAutoPreserve stops direct engine calls from propagating metadata.
// Calls made through the accessor still propagate.
func DisableAutoPreserve() {
	start().interceptor.Disable()
}

// AutoPreserveEnabled reports whether direct engine calls propagate
// metadata.
func AutoPreserveEnabled() bool {
	return start().interceptor.Enabled()
}

// CurrentMergePriority returns the priority used by combining operations.
func CurrentMergePriority() types.MergePriority {
	return start().interceptor.Priority()
}

func defaultCompression() string {
	settings.mu.Lock()
	defer settings.mu.Unlock()
	if settings.compression == "" {
		return types.CompressionSnappy
	}
	return settings.compression
}
