package sandbox

import (
	"context"
	"sync"
	"time"

	"forge/internal/logging"
)

const (
	heartbeatCommand = "echo 'heartbeat'"
	// heartbeatTimeout bounds a single touch so a wedged sandbox cannot
	// stall the monitor across ticks.
	heartbeatTimeout = 30 * time.Second
)

// KeepAlive periodically touches a sandbox so the provider does not evict it
// while the agent loop is blocked on model latency. A failed touch is logged
// and swallowed; losing one heartbeat must never abort the run.
type KeepAlive struct {
	provider  Provider
	sandboxID string

	done     chan struct{}
	finished chan struct{}
	stopOnce sync.Once
}

// StartKeepAlive heartbeats the sandbox on every period tick. The caller must
// Stop the monitor on every exit path.
func StartKeepAlive(provider Provider, sandboxID string, period time.Duration) *KeepAlive {
	k := &KeepAlive{
		provider:  provider,
		sandboxID: sandboxID,
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
	}
	go k.loop(period)
	return k
}

// Stop tears down the monitor and waits for any in-flight touch to finish.
// Safe to call more than once.
func (k *KeepAlive) Stop() {
	k.stopOnce.Do(func() {
		close(k.done)
	})
	<-k.finished
}

func (k *KeepAlive) loop(period time.Duration) {
	defer close(k.finished)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-k.done:
			return
		case <-ticker.C:
			k.touch()
		}
	}
}

func (k *KeepAlive) touch() {
	ctx, cancel := context.WithTimeout(context.Background(), heartbeatTimeout)
	defer cancel()

	session, err := k.provider.Resolve(ctx, k.sandboxID)
	if err != nil {
		logging.Warn("sandbox heartbeat: resolve failed: %v", err)
		return
	}

	if _, err := session.RunCommand(ctx, heartbeatCommand, CommandOpts{Timeout: heartbeatTimeout}); err != nil {
		logging.Warn("sandbox heartbeat: command failed: %v", err)
		return
	}

	logging.Debug("sandbox %s heartbeat sent", k.sandboxID)
}
