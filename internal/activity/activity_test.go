package activity

import (
	"net"
	"testing"
	"time"

	"github.com/firestige/otus-bench/internal/agent"
	"github.com/firestige/otus-bench/internal/artifact"
	"github.com/firestige/otus-bench/internal/netconn"
	"github.com/stretchr/testify/require"
)

// newTestFixture wires an activity's Start/Stop calls to a live agent
// session over a net.Pipe, the same way a controller stage worker
// would drive one connection.
func newTestFixture(t *testing.T) (*netconn.Connection, *artifact.Store, string) {
	t.Helper()
	clientConn, agentConn := net.Pipe()
	outdir := t.TempDir()
	sess := agent.NewSession(netconn.Accept(agentConn), outdir, nil)
	go sess.Run()
	conn := netconn.Accept(clientConn)
	t.Cleanup(func() { conn.Close() })
	return conn, artifact.NewStore(), outdir
}

func TestSleepActivityBlocksForDuration(t *testing.T) {
	a, err := New("sleep", "nap", map[string]any{"duration": "10ms"})
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, a.Start(nil, nil))
	require.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)

	hint, err := a.Stop(nil, nil)
	require.NoError(t, err)
	require.Nil(t, hint)
}

func TestPollerActivityStartStop(t *testing.T) {
	conn, store, _ := newTestFixture(t)

	a, err := New("poller", "mem", map[string]any{"pattern": "/proc/meminfo", "hint": "mem"})
	require.NoError(t, err)
	require.NoError(t, a.Start(conn, store))

	hint, err := a.Stop(conn, store)
	require.NoError(t, err)
	require.NotNil(t, hint)
	require.NotNil(t, hint.Label)
	require.Equal(t, "mem", *hint.Label)
}

func TestLaunchForegroundHasNoStopMessage(t *testing.T) {
	conn, store, _ := newTestFixture(t)

	a, err := New("launch", "echo", map[string]any{
		"cmd": "echo", "args": []any{"hi"}, "mode": "foreground",
	})
	require.NoError(t, err)
	require.NoError(t, a.Start(conn, store))

	hint, err := a.Stop(conn, store)
	require.NoError(t, err)
	require.NotNil(t, hint)
}

func TestLookupPathsWritesArtifact(t *testing.T) {
	conn, store, outdir := newTestFixture(t)
	_ = outdir

	a, err := New("lookup_paths", "paths", map[string]any{
		"pattern": "/proc/meminfo", "out": "paths",
	})
	require.NoError(t, err)
	require.NoError(t, a.Start(conn, store))

	val, err := store.Get("paths")
	require.NoError(t, err)
	require.Equal(t, []string{"/proc/meminfo"}, val.StringList)
}

func TestNewRejectsUnknownKind(t *testing.T) {
	_, err := New("no-such-kind", "x", nil)
	require.Error(t, err)
}

func TestFioArgsAreSortedAndStable(t *testing.T) {
	a, err := New("fio", "job", map[string]any{
		"ini": map[string]any{
			"global": map[string]any{"rw": "randread", "bs": "4k"},
			"sections": map[string]any{
				"job1": map[string]any{"iodepth": "32", "write_bw_log": "job1.bw"},
			},
		},
	})
	require.NoError(t, err)
	f := a.(*fioActivity)
	require.Equal(t, []string{"--bs=4k", "--rw=randread", "--name=job1", "--iodepth=32", "--write_bw_log=job1.bw"}, f.args())
	require.Equal(t, "job1.bw", f.hintFile)
}
