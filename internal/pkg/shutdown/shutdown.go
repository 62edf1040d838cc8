// Package shutdown coordinates graceful process shutdown.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"viralcut/internal/pkg/logger"
)

// Manager runs registered cleanup handlers once, newest first, under a
// shared deadline.
type Manager struct {
	log      *logger.Logger
	timeout  time.Duration
	mu       sync.Mutex
	handlers []Handler
	once     sync.Once
	done     chan struct{}
}

// Handler is a named cleanup step.
type Handler struct {
	Name    string
	Cleanup func(ctx context.Context) error
}

// NewManager creates a manager. A zero timeout means 30s.
func NewManager(log *logger.Logger, timeout time.Duration) *Manager {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Manager{
		log:     log.WithComponent("shutdown"),
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

func (m *Manager) Register(name string, cleanup func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, Handler{Name: name, Cleanup: cleanup})
}

// RegisterSimple registers a cleanup that cannot fail, e.g. pool.Close.
func (m *Manager) RegisterSimple(name string, cleanup func()) {
	m.Register(name, func(ctx context.Context) error {
		cleanup()
		return nil
	})
}

// Wait blocks until SIGINT, SIGTERM or ctx is done, then shuts down.
func (m *Manager) Wait(ctx context.Context) {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-sigCtx.Done()
	if ctx.Err() != nil {
		m.log.Info("context canceled, shutting down")
	} else {
		m.log.Info("shutdown signal received")
	}
	m.Shutdown()
}

// Shutdown runs the handlers in reverse registration order. Handlers still
// running at the deadline are abandoned. Only the first call has an effect.
func (m *Manager) Shutdown() {
	m.once.Do(func() {
		defer close(m.done)

		m.mu.Lock()
		handlers := append([]Handler(nil), m.handlers...)
		m.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		m.log.Info("graceful shutdown started", "handlers", len(handlers), "timeout", m.timeout.String())

		finished := make(chan struct{})
		go func() {
			defer close(finished)
			for i := len(handlers) - 1; i >= 0; i-- {
				h := handlers[i]
				start := time.Now()
				if err := h.Cleanup(ctx); err != nil {
					m.log.Error("shutdown handler failed", "name", h.Name, "error", err.Error())
					continue
				}
				m.log.Debug("shutdown handler completed", "name", h.Name, "duration_ms", time.Since(start).Milliseconds())
			}
		}()

		select {
		case <-finished:
			m.log.Info("graceful shutdown completed")
		case <-ctx.Done():
			m.log.Warn("shutdown timeout exceeded")
		}
	})
}

// Done is closed once Shutdown has returned.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Context returns a context canceled when shutdown completes.
func (m *Manager) Context() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-m.done
		cancel()
	}()
	return ctx
}
