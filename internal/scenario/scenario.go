// Package scenario decodes and validates the YAML scenario document: a
// non-empty `setup.agents` map and an ordered `runtime` stage list,
// into the Scenario/Stage/Chain types the controller scheduler
// (internal/controller) executes.
//
// This loader is deliberately minimal: no schema evolution, includes,
// or environment-variable interpolation are supported, only the
// invariant checks every Scenario must satisfy regardless of which
// parser produced it.
package scenario

import (
	"fmt"

	"github.com/firestige/otus-bench/internal/model"
)

// ActivityEntry is one chain position: a registered activity kind plus
// its decoded configuration map, handed to activity.New as-is.
type ActivityEntry struct {
	Kind   string
	Config map[string]any
}

// Chain is one agent's ordered activities within a single stage.
type Chain []ActivityEntry

// Stage is a named, ordered unit of the scenario: one chain per
// participating agent, run in parallel by the controller.
type Stage struct {
	Name   string
	Chains map[model.AgentID]Chain
}

// Scenario is the controller's verified input: the agent directory and
// the ordered stage list.
type Scenario struct {
	Agents map[model.AgentID]model.Endpoint
	Stages []Stage
}

// producesField names, per activity kind, the config field whose
// string value is a global artifact name this activity's Start writes
// into the store (only lookup_paths produces today).
var producesField = map[string]string{
	"lookup_paths": "out",
}

// consumesField names, per activity kind, the config field whose
// string value (if present) is a global artifact name this activity's
// Start reads from the store (only iostat's optional "in" binding
// consumes today).
var consumesField = map[string]string{
	"iostat": "in",
}

// Validate checks that every chain references a declared agent and
// that artifact consumers never read an artifact before it can have
// been produced. Id uniqueness, Collect legality, and one-in-flight
// request ordering are runtime properties the agent/connection already
// enforce and have no load-time analogue.
func (s *Scenario) Validate() error {
	if len(s.Agents) == 0 {
		return fmt.Errorf("scenario: setup.agents must be non-empty")
	}

	type produced struct {
		stage int
	}
	producers := map[string]produced{}

	// First pass: every reference and every producer, so a forward
	// reference within the same chain still resolves before we check
	// consumers in the second pass.
	for stageIdx, stage := range s.Stages {
		for agentID, chain := range stage.Chains {
			if _, ok := s.Agents[agentID]; !ok {
				return fmt.Errorf("scenario: stage %q references undeclared agent %q", stage.Name, agentID)
			}
			for _, entry := range chain {
				if field, ok := producesField[entry.Kind]; ok {
					name, _ := entry.Config[field].(string)
					if name == "" {
						continue
					}
					if prev, exists := producers[name]; exists {
						return fmt.Errorf("scenario: artifact %q produced more than once (stage %d and stage %d)", name, prev.stage, stageIdx)
					}
					producers[name] = produced{stage: stageIdx}
				}
			}
		}
	}

	for stageIdx, stage := range s.Stages {
		for agentID, chain := range stage.Chains {
			for pos, entry := range chain {
				field, ok := consumesField[entry.Kind]
				if !ok {
					continue
				}
				name, _ := entry.Config[field].(string)
				if name == "" {
					continue
				}
				prod, exists := producers[name]
				if !exists {
					return fmt.Errorf("scenario: stage %q agent %q activity %d (%s): consumes undeclared artifact %q",
						stage.Name, agentID, pos, entry.Kind, name)
				}
				if prod.stage > stageIdx {
					return fmt.Errorf("scenario: stage %q agent %q activity %d (%s): consumes artifact %q produced later (stage %d)",
						stage.Name, agentID, pos, entry.Kind, name, prod.stage)
				}
				if prod.stage == stageIdx {
					// Same-stage producer/consumer is only valid when
					// they are the same chain and the producer comes
					// first in chain order; a different agent's chain
					// in the same stage runs concurrently, so there is
					// no ordering guarantee between them.
					if !sameChainEarlierProducer(chain, entry.Kind, field, name, pos) {
						return fmt.Errorf("scenario: stage %q agent %q activity %d (%s): consumes artifact %q produced in the same stage by a different or later chain",
							stage.Name, agentID, pos, entry.Kind, name)
					}
				}
			}
		}
	}
	return nil
}

// sameChainEarlierProducer reports whether chain contains, at a
// position strictly before upTo, an activity that produces name.
func sameChainEarlierProducer(chain Chain, _ string, _ string, name string, upTo int) bool {
	for i := 0; i < upTo; i++ {
		field, ok := producesField[chain[i].Kind]
		if !ok {
			continue
		}
		if v, _ := chain[i].Config[field].(string); v == name {
			return true
		}
	}
	return false
}
