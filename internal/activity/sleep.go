package activity

import (
	"fmt"
	"time"

	"github.com/firestige/otus-bench/internal/artifact"
	"github.com/firestige/otus-bench/internal/model"
	"github.com/firestige/otus-bench/internal/netconn"
)

func init() {
	Register("sleep", newSleep)
}

// sleepActivity suspends the calling stage worker for a fixed
// duration. It sends no wire message; the agent is not involved.
type sleepActivity struct {
	duration time.Duration
}

func newSleep(_ string, cfg map[string]any) (Activity, error) {
	raw, err := requireString(cfg, "duration")
	if err != nil {
		return nil, fmt.Errorf("sleep: %w", err)
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return nil, fmt.Errorf("sleep: invalid duration %q: %w", raw, err)
	}
	return &sleepActivity{duration: d}, nil
}

func (a *sleepActivity) Start(_ *netconn.Connection, _ *artifact.Store) error {
	time.Sleep(a.duration)
	return nil
}

func (a *sleepActivity) Stop(_ *netconn.Connection, _ *artifact.Store) (*model.PlotHint, error) {
	return nil, nil
}
