// Package controller implements the controller side of the scenario
// scheduler: connect to every configured agent, run each stage's
// per-agent activity chains in three phases (start, stop,
// finalisation), and collect archives.
//
// Each stage's fan-out uses github.com/sourcegraph/conc.WaitGroup
// instead of a hand-rolled sync.WaitGroup, so a panicking
// Activity.Start is re-raised by Wait on the scheduler's goroutine
// once every worker of the stage has exited, instead of deadlocking
// the stage barrier.
package controller

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/firestige/otus-bench/internal/activity"
	"github.com/firestige/otus-bench/internal/artifact"
	"github.com/firestige/otus-bench/internal/model"
	"github.com/firestige/otus-bench/internal/netconn"
	"github.com/firestige/otus-bench/internal/scenario"
	"github.com/firestige/otus-bench/internal/wire"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
	uuid "github.com/satori/go.uuid"
	"go.uber.org/multierr"
)

// DialTimeout bounds each agent connection attempt.
const DialTimeout = 10 * time.Second

// builtEntry is one constructed Activity paired with the chain-entry
// kind that named it, kept around between the start and stop phases.
type builtEntry struct {
	kind string
	act  activity.Activity
}

// hintRecord is one line of an agent's eventual out.map file.
type hintRecord struct {
	id    model.Id
	kind  string
	label *string
}

// Controller drives one scenario run end to end.
type Controller struct {
	sc     *scenario.Scenario
	store  *artifact.Store
	outdir string
	runID  string
	log    *logrus.Entry

	conns map[model.AgentID]*netconn.Connection
	// built[stageIdx][agentID] holds that stage's chain, in start
	// order, for every agent that participated in it.
	built []map[model.AgentID][]builtEntry
	hints map[model.AgentID][]hintRecord
}

// New prepares a Controller for sc, rooted at outdir (created if
// absent). It does not connect to any agent yet.
func New(sc *scenario.Scenario, outdir string, log *logrus.Entry) *Controller {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	runID := uuid.NewV4().String()
	return &Controller{
		sc:     sc,
		store:  artifact.NewStore(),
		outdir: outdir,
		runID:  runID,
		log:    log.WithField("run_id", runID),
		conns:  make(map[model.AgentID]*netconn.Connection, len(sc.Agents)),
		built:  make([]map[model.AgentID][]builtEntry, len(sc.Stages)),
		hints:  make(map[model.AgentID][]hintRecord, len(sc.Agents)),
	}
}

// Connect dials every agent declared in the scenario. On any failure
// it closes the connections already opened and returns the error.
func (c *Controller) Connect(ctx context.Context) error {
	for id, ep := range c.sc.Agents {
		conn, err := netconn.Dial(ctx, ep.String(), DialTimeout)
		if err != nil {
			c.closeAll()
			return fmt.Errorf("controller: connect to agent %q at %s: %w", id, ep, err)
		}
		c.conns[id] = conn
		c.log.WithField("agent_id", id).WithField("endpoint", ep.String()).Info("connected to agent")
	}
	return nil
}

func (c *Controller) closeAll() {
	for _, conn := range c.conns {
		conn.Close()
	}
}

// Run executes the full scenario: start phase, stop phase, then
// finalisation. On a start-phase error it still runs the stop phase
// over whatever was already started, and finalisation over every
// connected agent, best-effort, before returning the original error
// alongside any teardown failures.
func (c *Controller) Run(ctx context.Context) error {
	startErr := c.runStartPhase()
	c.runStopPhase()
	finalErr := c.finalize()
	return multierr.Combine(startErr, finalErr)
}

// runStartPhase runs stages strictly sequential, one worker per agent
// within a stage, each worker running its chain's activities
// sequentially; the stage barrier waits for every worker before the
// next stage starts.
func (c *Controller) runStartPhase() error {
	type result struct {
		agentID model.AgentID
		built   []builtEntry
		err     error
	}

	for stageIdx, stage := range c.sc.Stages {
		var wg conc.WaitGroup
		results := make(chan result, len(stage.Chains))

		for agentID, chain := range stage.Chains {
			agentID, chain := agentID, chain
			conn, ok := c.conns[agentID]
			if !ok {
				return fmt.Errorf("controller: stage %q: no connection for agent %q", stage.Name, agentID)
			}
			wg.Go(func() {
				built, err := c.runChain(conn, chain)
				if err != nil {
					err = fmt.Errorf("stage %q agent %q: %w", stage.Name, agentID, err)
				}
				results <- result{agentID: agentID, built: built, err: err}
			})
		}
		wg.Wait()
		close(results)

		stageBuilt := make(map[model.AgentID][]builtEntry, len(stage.Chains))
		var firstErr error
		for r := range results {
			stageBuilt[r.agentID] = r.built
			if r.err != nil && firstErr == nil {
				firstErr = r.err
			}
		}
		c.built[stageIdx] = stageBuilt
		if firstErr != nil {
			return firstErr
		}
	}
	return nil
}

// runChain builds and starts every activity in chain, in order,
// stopping at the first error: an activity's Start failure is fatal
// to the whole scenario.
func (c *Controller) runChain(conn *netconn.Connection, chain scenario.Chain) ([]builtEntry, error) {
	built := make([]builtEntry, 0, len(chain))
	for _, entry := range chain {
		act, err := activity.New(entry.Kind, entry.Kind, entry.Config)
		if err != nil {
			return built, fmt.Errorf("build activity %q: %w", entry.Kind, err)
		}
		if err := act.Start(conn, c.store); err != nil {
			built = append(built, builtEntry{kind: entry.Kind, act: act})
			return built, fmt.Errorf("start activity %q: %w", entry.Kind, err)
		}
		built = append(built, builtEntry{kind: entry.Kind, act: act})
	}
	return built, nil
}

// runStopPhase runs stages in reverse order, each chain's activities
// stopped in reverse order, one worker per agent, collecting PlotHints
// in reverse-of-creation order per agent.
func (c *Controller) runStopPhase() {
	type result struct {
		agentID   model.AgentID
		collected []hintRecord
	}

	for stageIdx := len(c.built) - 1; stageIdx >= 0; stageIdx-- {
		chains := c.built[stageIdx]
		if chains == nil {
			continue
		}
		var wg conc.WaitGroup
		results := make(chan result, len(chains))
		for agentID, entries := range chains {
			agentID, entries := agentID, entries
			conn, ok := c.conns[agentID]
			if !ok {
				continue
			}
			wg.Go(func() {
				var collected []hintRecord
				for i := len(entries) - 1; i >= 0; i-- {
					e := entries[i]
					hint, err := e.act.Stop(conn, c.store)
					if err != nil {
						c.log.WithError(err).WithField("agent_id", agentID).WithField("kind", e.kind).
							Warn("error stopping activity")
						continue
					}
					if hint != nil {
						collected = append(collected, hintRecord{id: hint.ID, kind: e.kind, label: hint.Label})
					}
				}
				results <- result{agentID: agentID, collected: collected}
			})
		}
		wg.Wait()
		close(results)
		for r := range results {
			c.hints[r.agentID] = append(c.hints[r.agentID], r.collected...)
		}
	}
}

// finalize runs, for every connected agent in any order: StopAll,
// Collect, write archive and activity map, End, close. Failures are
// aggregated across agents rather than aborting after the first.
func (c *Controller) finalize() error {
	var errs error
	for agentID, conn := range c.conns {
		if err := c.finalizeAgent(agentID, conn); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("finalize agent %q: %w", agentID, err))
		}
	}
	return errs
}

func (c *Controller) finalizeAgent(agentID model.AgentID, conn *netconn.Connection) error {
	resp, err := conn.Call(&wire.Request{StopAll: &wire.StopAllRequest{}})
	if err != nil {
		return fmt.Errorf("stop_all: %w", err)
	}
	if resp.StopAll == nil {
		return fmt.Errorf("stop_all: agent returned a mismatched response")
	}
	if resp.StopAll.Error != "" {
		return fmt.Errorf("stop_all: %s", resp.StopAll.Error)
	}

	resp, err = conn.Call(&wire.Request{Collect: &wire.CollectRequest{}})
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}
	if resp.Collect == nil {
		return fmt.Errorf("collect: agent returned a mismatched response")
	}
	if resp.Collect.Error != "" {
		return fmt.Errorf("collect: %s", resp.Collect.Error)
	}

	agentDir := filepath.Join(c.outdir, string(agentID))
	if err := os.MkdirAll(agentDir, 0o755); err != nil {
		return fmt.Errorf("create agent output dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(agentDir, "out.tgz"), resp.Collect.Archive, 0o644); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	if err := writeActivityMap(filepath.Join(agentDir, "out.map"), c.hints[agentID]); err != nil {
		return fmt.Errorf("write activity map: %w", err)
	}

	_ = conn.Send(&wire.Request{End: &wire.EndRequest{}})
	return conn.Close()
}

// writeActivityMap writes one line per hint: "{id:03} {kind} {label?}".
func writeActivityMap(path string, hints []hintRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, h := range hints {
		line := h.id.String() + " " + h.kind
		if h.label != nil {
			line += " " + *h.label
		}
		if _, err := f.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return nil
}
