package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// MaxFrameSize is the largest frame the codec accepts; any larger
// length prefix is fatal for the connection.
const MaxFrameSize = 1<<31 - 1

// MalformedError is returned for any frame that cannot be decoded:
// unknown tags, truncated frames, or an oversized length prefix. All
// three are fatal for the connection.
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed frame: %s", e.Reason)
}

var requestTags = map[string]struct{}{
	"lookup_paths": {}, "poll": {}, "spawn": {}, "stop": {},
	"stop_all": {}, "collect": {}, "end": {}, "abort": {},
}

var responseTags = map[string]struct{}{
	"lookup_paths": {}, "poll": {}, "spawn": {}, "stop": {},
	"stop_all": {}, "collect": {},
}

// EncodeRequest serialises a Request into a length-prefixed frame.
func EncodeRequest(w io.Writer, req *Request) error {
	return encodeFrame(w, req)
}

// EncodeResponse serialises a Response into a length-prefixed frame.
func EncodeResponse(w io.Writer, resp *Response) error {
	return encodeFrame(w, resp)
}

func encodeFrame(w io.Writer, v any) error {
	body, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode frame body: %w", err)
	}
	if len(body) > MaxFrameSize {
		return &MalformedError{Reason: fmt.Sprintf("frame too large: %d bytes", len(body))}
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("write frame length: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write frame body: %w", err)
	}
	return nil
}

// readFrame reads one length-prefixed frame. A short read (EOF before
// N bytes are available) is reported as a MalformedError: frames are
// never partial, so a short read always fails the connection.
func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, &MalformedError{Reason: fmt.Sprintf("short read on length prefix: %v", err)}
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > MaxFrameSize {
		return nil, &MalformedError{Reason: fmt.Sprintf("frame length %d exceeds maximum", n)}
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, &MalformedError{Reason: fmt.Sprintf("short read on frame body: %v", err)}
	}
	return body, nil
}

// rawTagged decodes a MsgPack map body into its raw key/value pairs,
// so the single-tag invariant can be checked before the value is
// unmarshalled into the strongly typed variant.
func rawTagged(body []byte, allowed map[string]struct{}) (string, msgpack.RawMessage, error) {
	var raw map[string]msgpack.RawMessage
	if err := msgpack.Unmarshal(body, &raw); err != nil {
		return "", nil, &MalformedError{Reason: fmt.Sprintf("not a tagged map: %v", err)}
	}
	if len(raw) != 1 {
		return "", nil, &MalformedError{Reason: fmt.Sprintf("expected exactly one tag, got %d", len(raw))}
	}
	var tag string
	var val msgpack.RawMessage
	for k, v := range raw {
		tag, val = k, v
	}
	if _, ok := allowed[tag]; !ok {
		return "", nil, &MalformedError{Reason: fmt.Sprintf("unknown tag %q", tag)}
	}
	return tag, val, nil
}

// DecodeRequest reads and decodes one Request frame.
func DecodeRequest(r io.Reader) (*Request, error) {
	body, err := readFrame(r)
	if err != nil {
		return nil, err
	}
	if _, _, err := rawTagged(body, requestTags); err != nil {
		return nil, err
	}
	var req Request
	if err := msgpack.Unmarshal(body, &req); err != nil {
		return nil, &MalformedError{Reason: fmt.Sprintf("decode request: %v", err)}
	}
	return &req, nil
}

// DecodeResponse reads and decodes one Response frame.
func DecodeResponse(r io.Reader) (*Response, error) {
	body, err := readFrame(r)
	if err != nil {
		return nil, err
	}
	if _, _, err := rawTagged(body, responseTags); err != nil {
		return nil, err
	}
	var resp Response
	if err := msgpack.Unmarshal(body, &resp); err != nil {
		return nil, &MalformedError{Reason: fmt.Sprintf("decode response: %v", err)}
	}
	return &resp, nil
}
