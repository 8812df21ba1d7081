package activity

import (
	"fmt"

	"github.com/firestige/otus-bench/internal/artifact"
	"github.com/firestige/otus-bench/internal/model"
	"github.com/firestige/otus-bench/internal/netconn"
	"github.com/firestige/otus-bench/internal/wire"
)

func init() {
	Register("poller", newPollerActivity)
}

// pollerActivity starts a remote poller on Start and stops it on Stop,
// emitting a PlotHint carrying the allocated Id.
type pollerActivity struct {
	pattern string
	hint    *string

	id model.Id
}

func newPollerActivity(_ string, cfg map[string]any) (Activity, error) {
	pattern, err := requireString(cfg, "pattern")
	if err != nil {
		return nil, fmt.Errorf("poller: %w", err)
	}
	hint, err := optionalStringPtr(cfg, "hint")
	if err != nil {
		return nil, fmt.Errorf("poller: %w", err)
	}
	return &pollerActivity{pattern: pattern, hint: hint}, nil
}

func (a *pollerActivity) Start(conn *netconn.Connection, _ *artifact.Store) error {
	resp, err := conn.Call(&wire.Request{Poll: &wire.PollRequest{Pattern: a.pattern}})
	if err != nil {
		return fmt.Errorf("poller %q: %w", a.pattern, err)
	}
	if resp.Poll == nil {
		return fmt.Errorf("poller %q: agent returned a mismatched response", a.pattern)
	}
	if resp.Poll.Error != "" {
		return fmt.Errorf("poller %q: %s", a.pattern, resp.Poll.Error)
	}
	a.id = resp.Poll.ID
	return nil
}

func (a *pollerActivity) Stop(conn *netconn.Connection, _ *artifact.Store) (*model.PlotHint, error) {
	resp, err := conn.Call(&wire.Request{Stop: &wire.StopRequest{ID: a.id}})
	if err != nil {
		return nil, fmt.Errorf("poller %q: stop: %w", a.pattern, err)
	}
	if resp.Stop == nil {
		return nil, fmt.Errorf("poller %q: stop: agent returned a mismatched response", a.pattern)
	}
	if resp.Stop.Error != "" {
		return nil, fmt.Errorf("poller %q: stop: %s", a.pattern, resp.Stop.Error)
	}
	return &model.PlotHint{ID: a.id, Label: a.hint}, nil
}
