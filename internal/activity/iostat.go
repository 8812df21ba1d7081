package activity

import (
	"fmt"

	"github.com/firestige/otus-bench/internal/artifact"
	"github.com/firestige/otus-bench/internal/model"
	"github.com/firestige/otus-bench/internal/netconn"
)

func init() {
	Register("iostat", newIostat)
}

// iostatActivity wraps the predefined iostat launcher, optionally
// reading a device list out of the artifact store and appending the
// devices as trailing args.
type iostatActivity struct {
	inBinding string // artifact store key, empty if no binding configured
	inner     *launchActivity
}

func newIostat(_ string, cfg map[string]any) (Activity, error) {
	in, err := optionalString(cfg, "in")
	if err != nil {
		return nil, fmt.Errorf("iostat: %w", err)
	}
	return &iostatActivity{inBinding: in}, nil
}

func (a *iostatActivity) Start(conn *netconn.Connection, store *artifact.Store) error {
	args := append([]string{}, iostatBaseArgs...)
	if a.inBinding != "" {
		val, err := store.Get(a.inBinding)
		if err != nil {
			return fmt.Errorf("iostat: %w", err)
		}
		args = append(args, val.StringList...)
	}
	a.inner = &launchActivity{cmd: "iostat", args: args, mode: model.BackgroundKill}
	return a.inner.Start(conn, store)
}

func (a *iostatActivity) Stop(conn *netconn.Connection, store *artifact.Store) (*model.PlotHint, error) {
	if a.inner == nil {
		return nil, fmt.Errorf("iostat: stop called before start")
	}
	return a.inner.Stop(conn, store)
}
