// Package activity implements the two-phase operations a scenario
// chain is built from: sleep, poller, launch, lookup_paths, iostat,
// and fio, plus a table of predefined pollers and launchers. Each
// Activity runs start/stop sequentially on the one connection its
// stage worker owns; nothing in this package is goroutine-safe on its
// own, since each Activity is only ever driven by a single worker.
package activity

import (
	"fmt"

	"github.com/firestige/otus-bench/internal/artifact"
	"github.com/firestige/otus-bench/internal/model"
	"github.com/firestige/otus-bench/internal/netconn"
)

// Activity is a two-phase scenario step: Start runs when its stage's
// chain reaches it; Stop runs during the scheduler's reverse stop
// phase and optionally yields a PlotHint for the activity map file.
// Activities with no stop side-effect (sleep, lookup_paths) return
// (nil, nil) from Stop.
type Activity interface {
	Start(conn *netconn.Connection, store *artifact.Store) error
	Stop(conn *netconn.Connection, store *artifact.Store) (*model.PlotHint, error)
}

// Constructor builds one Activity instance from its chain-entry
// config. cfg is the decoded YAML mapping stored under the chain
// entry's single key (the key itself is the kind).
type Constructor func(name string, cfg map[string]any) (Activity, error)

// registry is the kind-name -> constructor table. Populated by each
// built-in's init() and read-only thereafter. A flat map is enough
// since activities have no inter-activity dependency graph: ordering
// comes entirely from a chain's position in its scenario stage.
var registry = map[string]Constructor{}

// Register adds kind to the registry. Panics on a duplicate kind,
// since that can only be a programming error at init time.
func Register(kind string, ctor Constructor) {
	if _, exists := registry[kind]; exists {
		panic(fmt.Sprintf("activity: duplicate registration for kind %q", kind))
	}
	registry[kind] = ctor
}

// New looks up kind and builds one Activity from cfg.
func New(kind, name string, cfg map[string]any) (Activity, error) {
	ctor, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("activity: unknown kind %q", kind)
	}
	return ctor(name, cfg)
}

// Kinds lists every registered activity kind, in no particular order,
// for diagnostics. Load-time rejection of unknown kinds goes through
// IsRegistered instead.
func Kinds() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	return out
}

// IsRegistered reports whether kind has a constructor, without
// allocating a full New call. internal/scenario uses this to reject
// unknown activity kinds while decoding, before any Activity is built.
func IsRegistered(kind string) bool {
	_, ok := registry[kind]
	return ok
}
