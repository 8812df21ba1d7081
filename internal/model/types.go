// Package model holds the data types shared by the wire protocol, the
// artifact store, the activity set, and the agent runtime.
package model

import "fmt"

// Id identifies a resource (poller or process) inside one agent. Agent
// assigned, starts at 1, never reused within a connection. 0 means
// "unassigned".
type Id uint32

// Unassigned is the reserved zero value of Id.
const Unassigned Id = 0

func (id Id) String() string {
	return fmt.Sprintf("%03d", uint32(id))
}

// SpawnMode selects how a spawned process is torn down.
type SpawnMode int

const (
	// Foreground runs to completion synchronously inside Spawn.
	Foreground SpawnMode = iota
	// BackgroundWait is waited-for on stop; no signal is sent unless the
	// agent is aborting.
	BackgroundWait
	// BackgroundKill is signalled then waited-for on stop.
	BackgroundKill
)

func (m SpawnMode) String() string {
	switch m {
	case Foreground:
		return "foreground"
	case BackgroundWait:
		return "background_wait"
	case BackgroundKill:
		return "background_kill"
	default:
		return fmt.Sprintf("spawn_mode(%d)", int(m))
	}
}

// Background reports whether the mode runs the process detached.
func (m SpawnMode) Background() bool {
	return m == BackgroundWait || m == BackgroundKill
}

// AgentID names one agent within a scenario. Declared by setup.agents
// in the scenario YAML and referenced by stages.
type AgentID string

// Endpoint is the TCP address a controller dials to reach an agent.
type Endpoint struct {
	Host string
	Port uint16
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// ArtifactValue is the tagged sum of values an activity can produce
// into, and consume from, the shared artifact store. Str is an
// additive extension used by nothing in the built-in activity set
// today.
type ArtifactValue struct {
	StringList []string `msgpack:"string_list,omitempty"`
	Str        *string  `msgpack:"str,omitempty"`
}

// IsZero reports whether no variant of the value has been populated.
func (v ArtifactValue) IsZero() bool {
	return v.StringList == nil && v.Str == nil
}

// PlotHint is auxiliary metadata recorded in the activity map file for
// downstream plotting: the resource Id an activity's stop phase
// produced, and an optional free-form label.
type PlotHint struct {
	ID    Id
	Label *string
}
