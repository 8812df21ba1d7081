package controller

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/firestige/otus-bench/internal/agent"
	"github.com/firestige/otus-bench/internal/scenario"
	"github.com/stretchr/testify/require"
)

func splitHostPort(t *testing.T, addr string) (host, port string) {
	t.Helper()
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	return host, port
}

func TestControllerRunsScenarioEndToEnd(t *testing.T) {
	srv, err := agent.Listen("127.0.0.1:0", t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	go srv.Serve()

	host, port := splitHostPort(t, srv.Addr().String())

	yaml := `
setup:
  agents:
    a1: { ip: ` + host + `, port: ` + port + ` }
runtime:
  - warmup:
      a1:
        - sleep: { duration: 1ms }
  - measure:
      a1:
        - poller: { pattern: /proc/meminfo, hint: mem }
`
	sc, err := scenario.Decode([]byte(yaml))
	require.NoError(t, err)

	outdir := t.TempDir()
	ctl := New(sc, outdir, nil)
	require.NoError(t, ctl.Connect(context.Background()))
	require.NoError(t, ctl.Run(context.Background()))

	agentDir := filepath.Join(outdir, "a1")
	archive, err := os.ReadFile(filepath.Join(agentDir, "out.tgz"))
	require.NoError(t, err)
	require.NotEmpty(t, archive)

	mapData, err := os.ReadFile(filepath.Join(agentDir, "out.map"))
	require.NoError(t, err)
	require.Contains(t, string(mapData), "poller mem")
}

func startTestAgent(t *testing.T) (host, port string) {
	t.Helper()
	srv, err := agent.Listen("127.0.0.1:0", t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	go srv.Serve()
	return splitHostPort(t, srv.Addr().String())
}

func TestControllerRunsScenarioWithTwoAgentsInOneStage(t *testing.T) {
	host1, port1 := startTestAgent(t)
	host2, port2 := startTestAgent(t)

	yaml := `
setup:
  agents:
    a1: { ip: ` + host1 + `, port: ` + port1 + ` }
    a2: { ip: ` + host2 + `, port: ` + port2 + ` }
runtime:
  - measure:
      a1:
        - poller: { pattern: /proc/meminfo, hint: mem }
      a2:
        - poller: { pattern: /proc/loadavg, hint: load }
`
	sc, err := scenario.Decode([]byte(yaml))
	require.NoError(t, err)

	outdir := t.TempDir()
	ctl := New(sc, outdir, nil)
	require.NoError(t, ctl.Connect(context.Background()))
	require.NoError(t, ctl.Run(context.Background()))

	for agentID, wantLabel := range map[string]string{"a1": "poller mem", "a2": "poller load"} {
		agentDir := filepath.Join(outdir, agentID)
		archive, err := os.ReadFile(filepath.Join(agentDir, "out.tgz"))
		require.NoError(t, err)
		require.NotEmpty(t, archive)

		mapData, err := os.ReadFile(filepath.Join(agentDir, "out.map"))
		require.NoError(t, err)
		require.Contains(t, string(mapData), wantLabel)
	}
}
