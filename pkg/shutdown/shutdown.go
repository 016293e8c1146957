// Package shutdown coordinates graceful teardown of the daemon: the tick
// loop stops first, then the API server drains, then the snapshot store
// closes with the final tree flushed.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hiveworks/swarmkernel/pkg/logging"
)

// Manager runs registered teardown functions in reverse registration
// order once a termination signal arrives.
type Manager struct {
	funcs   []namedFunc
	mu      sync.Mutex
	timeout time.Duration
	done    chan struct{}
	once    sync.Once
	log     *logging.Logger
}

type namedFunc struct {
	name string
	fn   func(context.Context) error
}

// New creates a manager with the given per-shutdown timeout.
func New(timeout time.Duration, log *logging.Logger) *Manager {
	return &Manager{
		timeout: timeout,
		done:    make(chan struct{}),
		log:     log,
	}
}

// Register adds a named teardown function. Functions run LIFO so that
// later-started components stop first.
func (m *Manager) Register(name string, fn func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funcs = append(m.funcs, namedFunc{name: name, fn: fn})
}

// Done is closed once shutdown has been initiated. The tick loop selects
// on it between invocations.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Trigger initiates shutdown without a signal, for tests and fatal errors.
func (m *Manager) Trigger() {
	m.once.Do(func() { close(m.done) })
}

// Wait blocks until SIGTERM, SIGINT, or an internal Trigger, then runs
// the teardown stack. The Trigger path matters for fatal startup errors:
// a component that fails after the daemon begins waiting must still bring
// the process down instead of leaving it wedged.
func (m *Manager) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		m.log.Info("received signal, shutting down", map[string]interface{}{"signal": sig.String()})
	case <-m.done:
		m.log.Info("shutdown triggered internally")
	}

	m.Trigger()
	m.Shutdown()
}

// Shutdown executes all registered teardown functions in reverse order.
// Errors are logged, not propagated: one failing component must not keep
// the rest from tearing down.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	for i := len(m.funcs) - 1; i >= 0; i-- {
		nf := m.funcs[i]
		if err := nf.fn(ctx); err != nil {
			m.log.Error("shutdown step failed", map[string]interface{}{
				"step":  nf.name,
				"error": err.Error(),
			})
			continue
		}
		m.log.Debug("shutdown step complete", map[string]interface{}{"step": nf.name})
	}
}

// CloseResource wraps an io.Closer as a teardown function.
func CloseResource(closer interface{ Close() error }) func(context.Context) error {
	return func(context.Context) error {
		return closer.Close()
	}
}

// StopServer wraps anything with a context-aware Shutdown, like
// http.Server, as a teardown function.
func StopServer(server interface {
	Shutdown(context.Context) error
}) func(context.Context) error {
	return func(ctx context.Context) error {
		return server.Shutdown(ctx)
	}
}
