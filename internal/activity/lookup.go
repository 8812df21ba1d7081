package activity

import (
	"fmt"

	"github.com/firestige/otus-bench/internal/artifact"
	"github.com/firestige/otus-bench/internal/model"
	"github.com/firestige/otus-bench/internal/netconn"
	"github.com/firestige/otus-bench/internal/wire"
)

func init() {
	Register("lookup_paths", newLookupPaths)
}

// lookupPathsActivity resolves a pattern on Start and writes the
// result into the artifact store under its configured output key.
type lookupPathsActivity struct {
	pattern string
	out     string
}

func newLookupPaths(_ string, cfg map[string]any) (Activity, error) {
	pattern, err := requireString(cfg, "pattern")
	if err != nil {
		return nil, fmt.Errorf("lookup_paths: %w", err)
	}
	out, err := requireString(cfg, "out")
	if err != nil {
		return nil, fmt.Errorf("lookup_paths: %w", err)
	}
	return &lookupPathsActivity{pattern: pattern, out: out}, nil
}

func (a *lookupPathsActivity) Start(conn *netconn.Connection, store *artifact.Store) error {
	resp, err := conn.Call(&wire.Request{LookupPaths: &wire.LookupPathsRequest{Pattern: a.pattern}})
	if err != nil {
		return fmt.Errorf("lookup_paths %q: %w", a.pattern, err)
	}
	if resp.LookupPaths == nil {
		return fmt.Errorf("lookup_paths %q: agent returned a mismatched response", a.pattern)
	}
	if resp.LookupPaths.Error != "" {
		return fmt.Errorf("lookup_paths %q: %s", a.pattern, resp.LookupPaths.Error)
	}
	if err := store.Set(a.out, model.ArtifactValue{StringList: resp.LookupPaths.Paths}); err != nil {
		return fmt.Errorf("lookup_paths %q: %w", a.pattern, err)
	}
	return nil
}

func (a *lookupPathsActivity) Stop(_ *netconn.Connection, _ *artifact.Store) (*model.PlotHint, error) {
	return nil, nil
}
