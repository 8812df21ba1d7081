// Package agent implements the agent side of the protocol: a
// single-threaded dispatch loop owns every poller and process this
// session has created, addressed by a monotonically increasing numeric
// Id, and tears them all down in reverse-creation order when the
// session ends.
package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/firestige/otus-bench/internal/model"
	"github.com/firestige/otus-bench/internal/netconn"
	"github.com/firestige/otus-bench/internal/poller"
	"github.com/firestige/otus-bench/internal/process"
	"github.com/firestige/otus-bench/internal/wire"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// sessionState names the agent session state machine:
// Idle -> Active -> {Gracing | Aborting} -> Closed.
type sessionState int

const (
	stateIdle sessionState = iota
	stateActive
	stateGracing
	stateAborting
	stateClosed
)

// Session owns every resource created over one connection's lifetime.
// pollers and procs are mutated only from the dispatch goroutine
// running Run, so no mutex guards them.
type Session struct {
	conn   *netconn.Connection
	outdir string
	log    *logrus.Entry

	nextID  atomic.Uint32
	pollers map[model.Id]*poller.Poller
	procs   map[model.Id]*process.Handle

	state sessionState
}

// NewSession prepares a session rooted at outdir, which must already
// exist and be empty; the caller (server.go) is responsible for
// allocating one outdir per accepted connection.
func NewSession(conn *netconn.Connection, outdir string, log *logrus.Entry) *Session {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Session{
		conn:    conn,
		outdir:  outdir,
		log:     log,
		pollers: make(map[model.Id]*poller.Poller),
		procs:   make(map[model.Id]*process.Handle),
		state:   stateIdle,
	}
}

// Run drives the recv -> handle -> send loop until the session closes,
// either by an explicit End/Abort or a broken transport.
func (s *Session) Run() {
	s.state = stateActive
	defer func() {
		s.state = stateClosed
		s.conn.Close()
	}()

	for {
		req, err := s.conn.RecvRequest()
		if err != nil {
			s.log.WithError(err).Warn("connection broken; aborting session")
			s.state = stateAborting
			s.stopAll(true)
			return
		}

		if req.End != nil {
			s.state = stateGracing
			s.stopAll(false)
			return
		}
		if req.Abort != nil {
			s.state = stateAborting
			s.stopAll(true)
			return
		}

		resp := s.dispatch(req)
		if err := s.conn.SendResponse(resp); err != nil {
			s.log.WithError(err).Warn("failed to send response; aborting session")
			s.state = stateAborting
			s.stopAll(true)
			return
		}
	}
}

// dispatch handles exactly one non-terminal request and builds its
// matching response.
func (s *Session) dispatch(req *wire.Request) *wire.Response {
	switch {
	case req.LookupPaths != nil:
		return s.handleLookupPaths(req.LookupPaths)
	case req.Poll != nil:
		return s.handlePoll(req.Poll)
	case req.Spawn != nil:
		return s.handleSpawn(req.Spawn)
	case req.Stop != nil:
		return s.handleStop(req.Stop)
	case req.StopAll != nil:
		return s.handleStopAll()
	case req.Collect != nil:
		return s.handleCollect()
	default:
		return &wire.Response{}
	}
}

func (s *Session) handleLookupPaths(r *wire.LookupPathsRequest) *wire.Response {
	paths, err := Resolve(r.Pattern)
	if err != nil {
		return &wire.Response{LookupPaths: &wire.LookupPathsResponse{Error: err.Error()}}
	}
	return &wire.Response{LookupPaths: &wire.LookupPathsResponse{Paths: paths}}
}

func (s *Session) handlePoll(r *wire.PollRequest) *wire.Response {
	files, err := Resolve(r.Pattern)
	if err != nil {
		return &wire.Response{Poll: &wire.PollResponse{Error: err.Error()}}
	}

	id := s.allocID()
	outPath, err := s.pollOutputPath(id)
	if err != nil {
		return &wire.Response{Poll: &wire.PollResponse{Error: err.Error()}}
	}
	p, err := poller.New(id, files, outPath, poller.DefaultPeriod)
	if err != nil {
		return &wire.Response{Poll: &wire.PollResponse{Error: err.Error()}}
	}
	s.pollers[id] = p
	return &wire.Response{Poll: &wire.PollResponse{ID: id}}
}

func (s *Session) handleSpawn(r *wire.SpawnRequest) *wire.Response {
	id := s.allocID()
	idName := id.String()

	if r.Mode == model.Foreground {
		stdout, stderr, err := process.RunForeground(idName, r.Cmd, r.Args, s.outdir)
		if err != nil {
			return &wire.Response{Spawn: &wire.SpawnResponse{Error: err.Error()}}
		}
		return &wire.Response{Spawn: &wire.SpawnResponse{ID: id, Stdout: stdout, Stderr: stderr}}
	}

	mode := process.WaitOnly
	if r.Mode == model.BackgroundKill {
		mode = process.SignalThenWait
	}
	h, err := process.StartBackground(idName, r.Cmd, r.Args, s.outdir, mode)
	if err != nil {
		return &wire.Response{Spawn: &wire.SpawnResponse{Error: err.Error()}}
	}
	s.procs[id] = h
	return &wire.Response{Spawn: &wire.SpawnResponse{ID: id}}
}

func (s *Session) handleStop(r *wire.StopRequest) *wire.Response {
	if err := s.stopOne(r.ID, false); err != nil {
		return &wire.Response{Stop: &wire.StopResponse{Error: err.Error()}}
	}
	return &wire.Response{Stop: &wire.StopResponse{}}
}

func (s *Session) handleStopAll() *wire.Response {
	s.stopAll(false)
	return &wire.Response{StopAll: &wire.StopAllResponse{}}
}

func (s *Session) handleCollect() *wire.Response {
	if len(s.pollers) != 0 || len(s.procs) != 0 {
		return &wire.Response{Collect: &wire.CollectResponse{Error: "collect requested with live resources outstanding"}}
	}
	archive, err := BuildArchive(s.outdir)
	if err != nil {
		return &wire.Response{Collect: &wire.CollectResponse{Error: err.Error()}}
	}
	return &wire.Response{Collect: &wire.CollectResponse{Archive: archive}}
}

// stopOne tears down a single resource by Id, preferring whichever map
// holds it; not found in either is an error. force is only ever true
// from stopAll during an abort.
func (s *Session) stopOne(id model.Id, force bool) error {
	if p, ok := s.pollers[id]; ok {
		delete(s.pollers, id)
		return p.Stop()
	}
	if h, ok := s.procs[id]; ok {
		delete(s.procs, id)
		return h.Stop(force)
	}
	return fmt.Errorf("stop %s: no such resource", id)
}

// stopAll tears down every live resource in strictly descending Id
// order (reverse-creation order) and empties both maps. abnormal
// forces a signal to every background process even if it was started
// BackgroundWait (Abort semantics).
func (s *Session) stopAll(abnormal bool) {
	ids := make([]model.Id, 0, len(s.pollers)+len(s.procs))
	for id := range s.pollers {
		ids = append(ids, id)
	}
	for id := range s.procs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	for _, id := range ids {
		if err := s.stopOne(id, abnormal); err != nil {
			s.log.WithError(err).WithField("id", id).Warn("error stopping resource during stop-all")
		}
	}
}

func (s *Session) allocID() model.Id {
	return model.Id(s.nextID.Add(1))
}

func (s *Session) pollOutputPath(id model.Id) (string, error) {
	if err := os.MkdirAll(s.outdir, 0o755); err != nil {
		return "", fmt.Errorf("poll %s: create outdir: %w", id, err)
	}
	return filepath.Join(s.outdir, id.String()+"-poll.log"), nil
}
