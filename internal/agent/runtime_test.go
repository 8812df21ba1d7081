package agent

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/firestige/otus-bench/internal/model"
	"github.com/firestige/otus-bench/internal/netconn"
	"github.com/firestige/otus-bench/internal/wire"
	"github.com/stretchr/testify/require"
)

// newTestSession wires a Session to one end of a net.Pipe and returns
// the other end for the test to drive as the controller would.
func newTestSession(t *testing.T) (client net.Conn, outdir string) {
	t.Helper()
	clientConn, agentConn := net.Pipe()
	outdir = t.TempDir()
	sess := NewSession(netconn.Accept(agentConn), outdir, nil)
	go sess.Run()
	t.Cleanup(func() { clientConn.Close() })
	return clientConn, outdir
}

func call(t *testing.T, conn net.Conn, req *wire.Request) *wire.Response {
	t.Helper()
	require.NoError(t, wire.EncodeRequest(conn, req))
	resp, err := wire.DecodeResponse(conn)
	require.NoError(t, err)
	return resp
}

func TestSessionLookupPathsAndForegroundSpawn(t *testing.T) {
	conn, outdir := newTestSession(t)
	watched := filepath.Join(outdir, "watched.txt")
	require.NoError(t, os.WriteFile(watched, nil, 0o644))

	resp := call(t, conn, &wire.Request{LookupPaths: &wire.LookupPathsRequest{Pattern: watched}})
	require.Empty(t, resp.LookupPaths.Error)
	require.Equal(t, []string{watched}, resp.LookupPaths.Paths)

	resp = call(t, conn, &wire.Request{Spawn: &wire.SpawnRequest{
		Cmd: "echo", Args: []string{"hi"}, Mode: model.Foreground,
	}})
	require.Empty(t, resp.Spawn.Error)
	require.Equal(t, "hi\n", string(resp.Spawn.Stdout))
}

// After StopAll every resource is gone, and Collect, which asserts
// empty maps, succeeds.
func TestSessionStopAllThenCollect(t *testing.T) {
	conn, _ := newTestSession(t)

	resp := call(t, conn, &wire.Request{Spawn: &wire.SpawnRequest{
		Cmd: "sleep", Args: []string{"5"}, Mode: model.BackgroundWait,
	}})
	require.Empty(t, resp.Spawn.Error)
	require.NotEqual(t, model.Unassigned, resp.Spawn.ID)

	resp = call(t, conn, &wire.Request{Poll: &wire.PollRequest{Pattern: "/proc/meminfo"}})
	require.Empty(t, resp.Poll.Error)

	resp = call(t, conn, &wire.Request{StopAll: &wire.StopAllRequest{}})
	require.Empty(t, resp.StopAll.Error)

	resp = call(t, conn, &wire.Request{Collect: &wire.CollectRequest{}})
	require.Empty(t, resp.Collect.Error)
	require.NotEmpty(t, resp.Collect.Archive)
}

func TestSessionStopUnknownIdIsError(t *testing.T) {
	conn, _ := newTestSession(t)
	resp := call(t, conn, &wire.Request{Stop: &wire.StopRequest{ID: model.Id(99)}})
	require.NotEmpty(t, resp.Stop.Error)
}

func TestSessionCollectFailsWithLiveResources(t *testing.T) {
	conn, _ := newTestSession(t)
	resp := call(t, conn, &wire.Request{Spawn: &wire.SpawnRequest{
		Cmd: "sleep", Args: []string{"5"}, Mode: model.BackgroundWait,
	}})
	require.Empty(t, resp.Spawn.Error)

	resp = call(t, conn, &wire.Request{Collect: &wire.CollectRequest{}})
	require.NotEmpty(t, resp.Collect.Error)

	// Clean up the still-running background process.
	resp = call(t, conn, &wire.Request{StopAll: &wire.StopAllRequest{}})
	require.Empty(t, resp.StopAll.Error)
}

// End closes the session without a response; a subsequent read
// observes the underlying connection closing.
func TestSessionEndClosesWithoutResponse(t *testing.T) {
	conn, _ := newTestSession(t)
	require.NoError(t, wire.EncodeRequest(conn, &wire.Request{End: &wire.EndRequest{}}))

	done := make(chan struct{})
	go func() {
		buf := make([]byte, 1)
		conn.Read(buf)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("connection was not closed after End")
	}
}
