package jobs

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/hembi12/whatbot/internal/metrics"
	"github.com/hembi12/whatbot/internal/services"
)

// SessionCleanupJob periodically removes inactive sessions
type SessionCleanupJob struct {
	sessions *services.SessionManager
	interval time.Duration
	maxAge   time.Duration
	metrics  *metrics.Recorder

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewSessionCleanupJob creates a cleanup job sweeping every interval
func NewSessionCleanupJob(sessions *services.SessionManager, interval, maxAge time.Duration, recorder *metrics.Recorder) *SessionCleanupJob {
	return &SessionCleanupJob{
		sessions: sessions,
		interval: interval,
		maxAge:   maxAge,
		metrics:  recorder,
	}
}

// Start runs the sweep loop in the background
func (j *SessionCleanupJob) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.isRunning {
		log.Println("Session cleanup already running")
		return
	}

	ctx, j.cancel = context.WithCancel(ctx)
	j.done = make(chan struct{})
	j.isRunning = true

	go j.run(ctx, j.done)

	log.Printf("🧹 Session cleanup every %s (max age %s)", j.interval, j.maxAge)
}

// Stop halts the loop and waits for an in-flight sweep
func (j *SessionCleanupJob) Stop() {
	j.mu.Lock()
	if !j.isRunning {
		j.mu.Unlock()
		return
	}
	j.isRunning = false
	j.cancel()
	done := j.done
	j.mu.Unlock()

	<-done
	log.Println("Session cleanup stopped")
}

func (j *SessionCleanupJob) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.RunOnce()
		}
	}
}

// RunOnce performs one sweep. A failing sweep is logged and never stops the loop.
func (j *SessionCleanupJob) RunOnce() (result services.SweepResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Session cleanup panicked: %v", r)
		}
	}()

	result, err := j.sessions.Sweep(j.maxAge)
	if err != nil {
		log.Printf("❌ Session cleanup failed: %v", err)
		return result
	}

	j.metrics.AddSwept(result.Removed, result.Repaired)
	return result
}
