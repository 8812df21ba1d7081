package netconn

import (
	"net"
	"testing"

	"github.com/firestige/otus-bench/internal/model"
	"github.com/firestige/otus-bench/internal/wire"
	"github.com/stretchr/testify/require"
)

func TestCallRoundTrip(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	client := Accept(clientConn)
	server := Accept(serverConn)

	done := make(chan struct{})
	go func() {
		defer close(done)
		req, err := server.RecvRequest()
		require.NoError(t, err)
		require.Equal(t, "poll", req.Tag())
		require.NoError(t, server.SendResponse(&wire.Response{Poll: &wire.PollResponse{ID: model.Id(1)}}))
	}()

	resp, err := client.Call(&wire.Request{Poll: &wire.PollRequest{Pattern: "/proc/stat"}})
	require.NoError(t, err)
	require.Equal(t, model.Id(1), resp.Poll.ID)
	<-done
}

func TestCallRejectsTerminalRequest(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	client := Accept(clientConn)
	_, err := client.Call(&wire.Request{End: &wire.EndRequest{}})
	require.Error(t, err)
}

func TestSendEndNotAcknowledged(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	serverDone := make(chan *wire.Request, 1)
	go func() {
		server := Accept(serverConn)
		req, err := server.RecvRequest()
		require.NoError(t, err)
		serverDone <- req
	}()

	client := Accept(clientConn)
	require.NoError(t, client.Send(&wire.Request{End: &wire.EndRequest{}}))

	req := <-serverDone
	require.True(t, req.Terminal())
}
