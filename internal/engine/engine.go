// Paced runner for live observation: one round per interval, adjustable
// speed, pause, and external stop. Batch runs bypass this and call
// Simulation.Run directly.
package engine

import (
	"log/slog"
	"sync"
	"time"
)

// Runner drives rounds forward on a wall-clock cadence. Speed and the
// running flag are adjusted from other goroutines (the admin API, signal
// handlers), so access goes through the accessor methods.
type Runner struct {
	Interval time.Duration // Base round interval. Set before Run.

	// OnRound runs once per round. Populated during setup.
	OnRound func()

	mu      sync.Mutex
	speed   float64 // Multiplier: 1.0 = one round per Interval, 0 = paused
	running bool
}

// NewRunner creates a runner with default pacing.
func NewRunner() *Runner {
	return &Runner{
		Interval: time.Second,
		speed:    1.0,
	}
}

// SetSpeed changes the pacing multiplier; 0 pauses the loop.
func (r *Runner) SetSpeed(speed float64) {
	r.mu.Lock()
	r.speed = speed
	r.mu.Unlock()
}

// CurrentSpeed returns the pacing multiplier.
func (r *Runner) CurrentSpeed() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.speed
}

// IsRunning reports whether the loop is active.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Run starts the paced loop. Blocks until Stop is called.
func (r *Runner) Run() {
	r.mu.Lock()
	r.running = true
	r.mu.Unlock()
	slog.Info("runner started", "interval", r.Interval, "speed", r.CurrentSpeed())

	for r.IsRunning() {
		speed := r.CurrentSpeed()
		if speed <= 0 {
			// Paused — sleep briefly and check again.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()

		if r.OnRound != nil {
			r.OnRound()
		}

		elapsed := time.Since(start)
		target := time.Duration(float64(r.Interval) / speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("runner stopped")
}

// Stop halts the loop after the current round completes.
func (r *Runner) Stop() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}
