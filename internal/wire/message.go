// Package wire implements the controller<->agent frame codec: a
// 4-byte little-endian length prefix followed by a MsgPack-encoded
// Request or Response.
//
// Request and Response are externally-tagged enums. MsgPack has no
// native tagged-union support, so each is represented as a struct
// carrying one non-nil pointer field per variant (the map that MsgPack
// emits for the struct therefore has exactly one key when the value is
// well-formed), so decode can recover the exact variant without a
// side-channel method name.
package wire

import "github.com/firestige/otus-bench/internal/model"

// Request is the tagged union of messages the controller sends to an
// agent. Exactly one field is non-nil on any well-formed value.
type Request struct {
	LookupPaths *LookupPathsRequest `msgpack:"lookup_paths,omitempty"`
	Poll        *PollRequest        `msgpack:"poll,omitempty"`
	Spawn       *SpawnRequest       `msgpack:"spawn,omitempty"`
	Stop        *StopRequest        `msgpack:"stop,omitempty"`
	StopAll     *StopAllRequest     `msgpack:"stop_all,omitempty"`
	Collect     *CollectRequest     `msgpack:"collect,omitempty"`
	End         *EndRequest         `msgpack:"end,omitempty"`
	Abort       *AbortRequest       `msgpack:"abort,omitempty"`
}

// Tag names the populated variant, or "" if none is set. If more than
// one is set it names the first in field order (callers validate
// single-variant shape separately; Tag is for logging).
func (r *Request) Tag() string {
	switch {
	case r.LookupPaths != nil:
		return "lookup_paths"
	case r.Poll != nil:
		return "poll"
	case r.Spawn != nil:
		return "spawn"
	case r.Stop != nil:
		return "stop"
	case r.StopAll != nil:
		return "stop_all"
	case r.Collect != nil:
		return "collect"
	case r.End != nil:
		return "end"
	case r.Abort != nil:
		return "abort"
	default:
		return ""
	}
}

// Terminal reports whether this request closes the session without a
// matching Response (End, Abort).
func (r *Request) Terminal() bool {
	return r.End != nil || r.Abort != nil
}

// LookupPathsRequest resolves a brace/glob pattern to absolute paths.
type LookupPathsRequest struct {
	Pattern string `msgpack:"pattern"`
}

// PollRequest starts a polling thread snapshotting matched files.
type PollRequest struct {
	Pattern string `msgpack:"pattern"`
}

// SpawnRequest starts a child process with a dedicated working
// directory and captured stdout/stderr.
type SpawnRequest struct {
	Cmd  string          `msgpack:"cmd"`
	Args []string        `msgpack:"args"`
	Mode model.SpawnMode `msgpack:"mode"`
}

// StopRequest stops one resource.
type StopRequest struct {
	ID model.Id `msgpack:"id"`
}

// StopAllRequest stops all running resources in reverse-of-creation order.
type StopAllRequest struct{}

// CollectRequest produces a compressed archive of the agent's output
// directory. Legal only when no resources remain.
type CollectRequest struct{}

// EndRequest closes the session gracefully. Not acknowledged.
type EndRequest struct{}

// AbortRequest closes the session immediately. Not acknowledged.
type AbortRequest struct{}

// Response is the tagged union of replies an agent sends back.
// Exactly one non-terminal request maps to exactly one Response; End
// and Abort have none.
type Response struct {
	LookupPaths *LookupPathsResponse `msgpack:"lookup_paths,omitempty"`
	Poll        *PollResponse        `msgpack:"poll,omitempty"`
	Spawn       *SpawnResponse       `msgpack:"spawn,omitempty"`
	Stop        *StopResponse        `msgpack:"stop,omitempty"`
	StopAll     *StopAllResponse     `msgpack:"stop_all,omitempty"`
	Collect     *CollectResponse     `msgpack:"collect,omitempty"`
}

// Tag names the populated variant, or "" if none is set; with more
// than one set it names the first in field order.
func (r *Response) Tag() string {
	switch {
	case r.LookupPaths != nil:
		return "lookup_paths"
	case r.Poll != nil:
		return "poll"
	case r.Spawn != nil:
		return "spawn"
	case r.Stop != nil:
		return "stop"
	case r.StopAll != nil:
		return "stop_all"
	case r.Collect != nil:
		return "collect"
	default:
		return ""
	}
}

// LookupPathsResponse carries the resolved paths, or Error on failure.
type LookupPathsResponse struct {
	Paths []string `msgpack:"paths,omitempty"`
	Error string   `msgpack:"error,omitempty"`
}

// PollResponse carries the allocated poller Id, or Error on failure.
type PollResponse struct {
	ID    model.Id `msgpack:"id,omitempty"`
	Error string   `msgpack:"error,omitempty"`
}

// SpawnResponse carries the allocated Id and, for Foreground spawns,
// the captured stdout/stderr bytes.
type SpawnResponse struct {
	ID     model.Id `msgpack:"id,omitempty"`
	Stdout []byte   `msgpack:"stdout,omitempty"`
	Stderr []byte   `msgpack:"stderr,omitempty"`
	Error  string   `msgpack:"error,omitempty"`
}

// StopResponse acknowledges a Stop request.
type StopResponse struct {
	Error string `msgpack:"error,omitempty"`
}

// StopAllResponse acknowledges a StopAll request.
type StopAllResponse struct {
	Error string `msgpack:"error,omitempty"`
}

// CollectResponse carries the archive bytes, or Error on failure.
type CollectResponse struct {
	Archive []byte `msgpack:"archive,omitempty"`
	Error   string `msgpack:"error,omitempty"`
}
