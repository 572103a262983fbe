package rtsploadtest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/bluenviron/rtspsession/rtsp/client"
)

// Runner spawns Scenario.Readers client sessions at Scenario.Rate
// connections/sec, each held open for Scenario.Duration, and aggregates
// connect-success and failure counts.
type Runner struct {
	scenario Scenario

	activeSessions atomic.Int64
	totalConnected atomic.Int64
	totalFailed    atomic.Int64

	limiter *rate.Limiter
	wg      sync.WaitGroup
}

// NewRunner builds a Runner for one scenario.
func NewRunner(sc Scenario) *Runner {
	sc.setDefaults()
	burst := 10
	if sc.Rate > 100 {
		burst = int(sc.Rate / 10)
	}
	return &Runner{
		scenario: sc,
		limiter:  rate.NewLimiter(rate.Limit(sc.Rate), burst),
	}
}

// Run spawns readers until Scenario.Readers have been started or ctx is
// cancelled, then waits for them all to finish.
func (r *Runner) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for i := 0; i < r.scenario.Readers; i++ {
		if runCtx.Err() != nil {
			break
		}
		if err := r.limiter.Wait(runCtx); err != nil {
			break
		}

		r.wg.Add(1)
		go r.runOne(runCtx)
	}

	r.wg.Wait()
	return nil
}

func (r *Runner) runOne(ctx context.Context) {
	defer r.wg.Done()

	cl := client.New(client.Config{PreferredTransport: r.scenario.Transport})

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := cl.Connect(dialCtx, r.scenario.URL); err != nil {
		r.totalFailed.Add(1)
		return
	}

	r.activeSessions.Add(1)
	defer r.activeSessions.Add(-1)
	defer cl.Close()

	if err := cl.Options(); err != nil {
		r.totalFailed.Add(1)
		return
	}
	if err := cl.Describe(); err != nil {
		r.totalFailed.Add(1)
		return
	}
	if err := cl.Setup(0); err != nil {
		r.totalFailed.Add(1)
		return
	}
	if err := cl.Play(); err != nil {
		r.totalFailed.Add(1)
		return
	}

	r.totalConnected.Add(1)

	runCtx, runCancel := context.WithTimeout(ctx, r.scenario.Duration)
	defer runCancel()
	<-runCtx.Done()

	_ = cl.Teardown()
}

// Stats is a snapshot of the run's counters.
type Stats struct {
	ActiveSessions int64
	TotalConnected int64
	TotalFailed    int64
}

// GetStats returns the current counter snapshot.
func (r *Runner) GetStats() Stats {
	return Stats{
		ActiveSessions: r.activeSessions.Load(),
		TotalConnected: r.totalConnected.Load(),
		TotalFailed:    r.totalFailed.Load(),
	}
}

// PrintStats writes a one-line human-readable summary.
func (r *Runner) PrintStats() {
	s := r.GetStats()
	fmt.Printf("active=%d connected=%d failed=%d\n", s.ActiveSessions, s.TotalConnected, s.TotalFailed)
}
