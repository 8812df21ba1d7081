package scenario

import (
	"fmt"
	"os"

	"github.com/firestige/otus-bench/internal/activity"
	"github.com/firestige/otus-bench/internal/model"
	"gopkg.in/yaml.v3"
)

// rawAgent mirrors the setup.agents value shape: { ip, port }.
type rawAgent struct {
	IP   string `yaml:"ip"`
	Port uint16 `yaml:"port"`
}

// rawDocument mirrors the top-level YAML document shape:
//
//	setup:
//	  agents: { <id>: { ip, port } }
//	runtime:
//	  - <stage-name>: { <agent-id>: [ <activity-name>: <cfg> ] }
type rawDocument struct {
	Setup struct {
		Agents map[string]rawAgent `yaml:"agents"`
	} `yaml:"setup"`
	Runtime []map[string]map[string][]map[string]any `yaml:"runtime"`
}

// Load reads and decodes the scenario file at path, builds a Scenario,
// and validates it (Load never returns an unvalidated Scenario).
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: read %s: %w", path, err)
	}
	return Decode(data)
}

// Decode parses raw YAML bytes into a validated Scenario.
func Decode(data []byte) (*Scenario, error) {
	var raw rawDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("scenario: decode: %w", err)
	}

	sc := &Scenario{
		Agents: make(map[model.AgentID]model.Endpoint, len(raw.Setup.Agents)),
		Stages: make([]Stage, 0, len(raw.Runtime)),
	}
	for id, a := range raw.Setup.Agents {
		sc.Agents[model.AgentID(id)] = model.Endpoint{Host: a.IP, Port: a.Port}
	}

	for _, stageMap := range raw.Runtime {
		if len(stageMap) != 1 {
			return nil, fmt.Errorf("scenario: each runtime entry must be a single-entry stage map, got %d keys", len(stageMap))
		}
		for stageName, agentChains := range stageMap {
			stage := Stage{Name: stageName, Chains: make(map[model.AgentID]Chain, len(agentChains))}
			for agentID, rawChain := range agentChains {
				chain := make(Chain, 0, len(rawChain))
				for _, activityMap := range rawChain {
					if len(activityMap) != 1 {
						return nil, fmt.Errorf("scenario: stage %q agent %q: each activity must be a single-entry map, got %d keys",
							stageName, agentID, len(activityMap))
					}
					for kind, cfg := range activityMap {
						if !activity.IsRegistered(kind) {
							return nil, fmt.Errorf("scenario: stage %q agent %q: unknown activity kind %q", stageName, agentID, kind)
						}
						cm, _ := cfg.(map[string]any)
						if cm == nil {
							cm = map[string]any{}
						}
						chain = append(chain, ActivityEntry{Kind: kind, Config: cm})
					}
				}
				stage.Chains[model.AgentID(agentID)] = chain
			}
			sc.Stages = append(sc.Stages, stage)
		}
	}

	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}
