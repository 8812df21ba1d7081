package activity

import (
	"fmt"

	"github.com/firestige/otus-bench/internal/artifact"
	"github.com/firestige/otus-bench/internal/model"
	"github.com/firestige/otus-bench/internal/netconn"
	"github.com/firestige/otus-bench/internal/wire"
)

func init() {
	Register("launch", newLaunch)
}

// launchActivity spawns a process on Start. A foreground launch
// completes inside Start; its stop phase emits the hint with no wire
// message. A background launch registers the allocated Id and sends
// an explicit Stop during the stop phase.
type launchActivity struct {
	cmd  string
	args []string
	mode model.SpawnMode
	hint *string

	id     model.Id
	stdout []byte
	stderr []byte
}

func newLaunch(_ string, cfg map[string]any) (Activity, error) {
	cmd, err := requireString(cfg, "cmd")
	if err != nil {
		return nil, fmt.Errorf("launch: %w", err)
	}
	modeRaw, err := optionalString(cfg, "mode")
	if err != nil {
		return nil, fmt.Errorf("launch: %w", err)
	}
	mode, err := parseSpawnMode(modeRaw)
	if err != nil {
		return nil, fmt.Errorf("launch: %w", err)
	}
	args, err := stringSlice(cfg, "args")
	if err != nil {
		return nil, fmt.Errorf("launch: %w", err)
	}
	hint, err := optionalStringPtr(cfg, "hint")
	if err != nil {
		return nil, fmt.Errorf("launch: %w", err)
	}
	return &launchActivity{cmd: cmd, args: args, mode: mode, hint: hint}, nil
}

// parseSpawnMode maps the scenario YAML's mode string to model.SpawnMode.
// "" defaults to background_wait.
func parseSpawnMode(s string) (model.SpawnMode, error) {
	switch s {
	case "", "background_wait":
		return model.BackgroundWait, nil
	case "background_kill":
		return model.BackgroundKill, nil
	case "foreground":
		return model.Foreground, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s)
	}
}

func (a *launchActivity) Start(conn *netconn.Connection, _ *artifact.Store) error {
	resp, err := conn.Call(&wire.Request{Spawn: &wire.SpawnRequest{Cmd: a.cmd, Args: a.args, Mode: a.mode}})
	if err != nil {
		return fmt.Errorf("launch %q: %w", a.cmd, err)
	}
	if resp.Spawn == nil {
		return fmt.Errorf("launch %q: agent returned a mismatched response", a.cmd)
	}
	if resp.Spawn.Error != "" {
		return fmt.Errorf("launch %q: %s", a.cmd, resp.Spawn.Error)
	}
	a.id = resp.Spawn.ID
	a.stdout = resp.Spawn.Stdout
	a.stderr = resp.Spawn.Stderr
	return nil
}

func (a *launchActivity) Stop(conn *netconn.Connection, _ *artifact.Store) (*model.PlotHint, error) {
	if !a.mode.Background() {
		return &model.PlotHint{ID: a.id, Label: a.hint}, nil
	}
	resp, err := conn.Call(&wire.Request{Stop: &wire.StopRequest{ID: a.id}})
	if err != nil {
		return nil, fmt.Errorf("launch %q: stop: %w", a.cmd, err)
	}
	if resp.Stop == nil {
		return nil, fmt.Errorf("launch %q: stop: agent returned a mismatched response", a.cmd)
	}
	if resp.Stop.Error != "" {
		return nil, fmt.Errorf("launch %q: stop: %s", a.cmd, resp.Stop.Error)
	}
	return &model.PlotHint{ID: a.id, Label: a.hint}, nil
}
