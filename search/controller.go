package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/occusearch/ai"
	"github.com/poiesic/occusearch/core"
)

// DefaultProbeTimeout bounds provider acquisition plus the test embedding.
const DefaultProbeTimeout = 30 * time.Second

// DefaultProbeText is embedded to verify that the provider works.
const DefaultProbeText = "software engineer"

// State is the provider availability state of a Controller.
type State int

const (
	StateUninitialized State = iota
	StateProbing
	StateHybridReady
	StateFallbackReady
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateProbing:
		return "probing"
	case StateHybridReady:
		return "hybrid_ready"
	case StateFallbackReady:
		return "fallback_ready"
	default:
		return "unknown"
	}
}

// AcquireFunc obtains an embedding provider, e.g. by connecting to a
// service or loading a model.
type AcquireFunc func(ctx context.Context) (ai.AIProvider, error)

// Controller decides, once per process, whether searches run in hybrid or
// fallback mode. Until probing completes every search runs in fallback.
type Controller struct {
	probeTimeout time.Duration
	probeText    string
	logger       *slog.Logger

	once     sync.Once
	mu       sync.RWMutex
	state    State
	provider ai.AIProvider
	probeErr error
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithProbeTimeout overrides DefaultProbeTimeout.
func WithProbeTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.probeTimeout = d
		}
	}
}

// WithProbeText overrides the text embedded during the probe.
func WithProbeText(text string) ControllerOption {
	return func(c *Controller) {
		if text != "" {
			c.probeText = text
		}
	}
}

// WithControllerLogger sets the logger used by the controller.
func WithControllerLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewController creates a controller in StateUninitialized.
func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		probeTimeout: DefaultProbeTimeout,
		probeText:    DefaultProbeText,
		logger:       slog.Default().With("component", "controller"),
		state:        StateUninitialized,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Probe acquires a provider and verifies it with one test embedding.
// Success moves the controller to StateHybridReady; any failure, including
// a panic inside acquire, moves it to StateFallbackReady and is returned
// wrapped in core.ErrProviderUnavailable. The failure is informational:
// the controller remains usable in fallback mode.
//
// Only the first call probes. Later calls return the first outcome.
func (c *Controller) Probe(ctx context.Context, acquire AcquireFunc) error {
	c.once.Do(func() {
		c.setState(StateProbing)
		c.logger.Info("probing embedding provider", "timeout", c.probeTimeout)

		provider, err := c.probe(ctx, acquire)

		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			c.probeErr = fmt.Errorf("%w: %w", core.ErrProviderUnavailable, err)
			c.state = StateFallbackReady
			c.logger.Warn("embedding provider unavailable, using fallback search", "err", err)
			return
		}
		c.provider = provider
		c.state = StateHybridReady
		c.logger.Info("embedding provider ready", "model", provider.Embedder().ModelID())
	})

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.probeErr
}

func (c *Controller) probe(ctx context.Context, acquire AcquireFunc) (provider ai.AIProvider, err error) {
	if acquire == nil {
		return nil, fmt.Errorf("no provider configured")
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panicked: %v", r)
			provider = nil
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	provider, err = acquire(ctx)
	if err != nil {
		return nil, err
	}
	if provider == nil || provider.Embedder() == nil {
		return nil, fmt.Errorf("provider has no embedder")
	}

	vector, err := provider.Embedder().EmbedText(ctx, c.probeText)
	if err == nil && len(vector) == 0 {
		err = fmt.Errorf("test embedding is empty")
	}
	if err != nil {
		if cerr := provider.Close(); cerr != nil {
			c.logger.Debug("error closing failed provider", "err", cerr)
		}
		return nil, fmt.Errorf("test embedding: %w", err)
	}
	return provider, nil
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// CurrentMode returns core.ModeHybrid in StateHybridReady and
// core.ModeFallback in every other state.
func (c *Controller) CurrentMode() core.Mode {
	if c.State() == StateHybridReady {
		return core.ModeHybrid
	}
	return core.ModeFallback
}

// Embedder returns the probed provider's embedder, or nil unless the
// controller is in StateHybridReady.
func (c *Controller) Embedder() ai.Embedder {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateHybridReady || c.provider == nil {
		return nil
	}
	return c.provider.Embedder()
}

// Close releases the provider, if any. The mode is unchanged.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.provider == nil {
		return nil
	}
	err := c.provider.Close()
	c.provider = nil
	return err
}
