package subject

import (
	"context"
	"sync"
	"time"

	"github.com/zjrosen/cmdgate/internal/log"
)

var (
	heartbeatMu sync.Mutex
	heartbeat   *Subject
)

// Heartbeat returns the process-wide "re-check every command" subject.
// It is created on first use and then shared by every command that opts in.
func Heartbeat() *Subject {
	heartbeatMu.Lock()
	defer heartbeatMu.Unlock()

	if heartbeat == nil {
		heartbeat = New("heartbeat")
		log.Debug(log.CatSubject, "heartbeat created")
	}
	return heartbeat
}

// InvalidateAll fires the heartbeat.
func InvalidateAll() {
	Heartbeat().Notify()
}

// ResetHeartbeatForTesting drops the singleton so the next Heartbeat call
// creates a fresh one. Only test harnesses should call this; commands still
// subscribed to the old subject stop receiving heartbeats.
func ResetHeartbeatForTesting() {
	heartbeatMu.Lock()
	defer heartbeatMu.Unlock()
	heartbeat = nil
}

// PumpHeartbeat fires the heartbeat every interval until ctx is done.
// A non-positive interval disables pumping.
func PumpHeartbeat(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				InvalidateAll()
			}
		}
	}()
}
