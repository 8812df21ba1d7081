package wire

import (
	"bytes"
	"testing"

	"github.com/firestige/otus-bench/internal/model"
	"github.com/stretchr/testify/require"
)

// Every Request and Response round-trips through encode then decode.
func TestRequestRoundTrip(t *testing.T) {
	cases := []*Request{
		{LookupPaths: &LookupPathsRequest{Pattern: "/proc/{stat,meminfo}"}},
		{Poll: &PollRequest{Pattern: "/proc/net/dev"}},
		{Spawn: &SpawnRequest{Cmd: "fio", Args: []string{"--name=t"}, Mode: model.BackgroundWait}},
		{Stop: &StopRequest{ID: model.Id(3)}},
		{StopAll: &StopAllRequest{}},
		{Collect: &CollectRequest{}},
		{End: &EndRequest{}},
		{Abort: &AbortRequest{}},
	}

	for _, req := range cases {
		var buf bytes.Buffer
		require.NoError(t, EncodeRequest(&buf, req))

		got, err := DecodeRequest(&buf)
		require.NoError(t, err)
		require.Equal(t, req, got)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	cases := []*Response{
		{LookupPaths: &LookupPathsResponse{Paths: []string{"/proc/stat"}}},
		{Poll: &PollResponse{ID: model.Id(1)}},
		{Spawn: &SpawnResponse{ID: model.Id(2), Stdout: []byte("hello\n")}},
		{Stop: &StopResponse{}},
		{StopAll: &StopAllResponse{}},
		{Collect: &CollectResponse{Archive: []byte{0x1f, 0x8b}}},
		{Stop: &StopResponse{Error: "not found"}},
	}

	for _, resp := range cases {
		var buf bytes.Buffer
		require.NoError(t, EncodeResponse(&buf, resp))

		got, err := DecodeResponse(&buf)
		require.NoError(t, err)
		require.Equal(t, resp, got)
	}
}

func TestDecodeRequestRejectsUnknownTag(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, encodeFrame(&buf, map[string]any{"bogus": struct{}{}}))

	_, err := DecodeRequest(&buf)
	require.Error(t, err)
	var malformed *MalformedError
	require.ErrorAs(t, err, &malformed)
}

func TestDecodeRequestRejectsMultipleTags(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, encodeFrame(&buf, map[string]any{
		"poll":     PollRequest{Pattern: "/proc/stat"},
		"stop_all": StopAllRequest{},
	}))

	_, err := DecodeRequest(&buf)
	require.Error(t, err)
}

func TestDecodeRequestRejectsShortFrame(t *testing.T) {
	// A length prefix claiming 10 bytes but only 2 supplied.
	buf := bytes.NewBuffer([]byte{0x0a, 0x00, 0x00, 0x00, 0x01, 0x02})

	_, err := DecodeRequest(buf)
	require.Error(t, err)
	var malformed *MalformedError
	require.ErrorAs(t, err, &malformed)
}
