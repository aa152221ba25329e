// Package wire implements the between-nodes binary frame protocol (spec
// §6): length-prefixed frames on a persistent TCP connection, all numeric
// fields big-endian. The teacher has no binary wire protocol of its own —
// it moves everything as JSON over HTTP via cluster.PostJSON/GetJSON — so
// this package reimplements that same "one codec shared by both ends"
// principle as binary framing, per the spec's explicit requirement.
package wire

import (
	"encoding/binary"
	"io"

	"github.com/dreamware/terrastore/internal/errs"
)

// Status is the single byte a response frame carries in place of a
// structured error (spec §6).
type Status uint8

const (
	StatusOK              Status = 0
	StatusProcessingError Status = 1
	StatusValidationError Status = 2
	StatusProtocolError   Status = 3
)

// maxBodyLength guards against a corrupt or hostile length prefix causing
// an unbounded allocation.
const maxBodyLength = 64 << 20 // 64 MiB

// requestHeaderLen is the encoded size, in bytes, of a request payload's
// fixed-width header: requestId(8) + kind(2) + version(2).
const requestHeaderLen = 8 + 2 + 2

// responseHeaderLen is the encoded size of a response payload's
// fixed-width header: requestId(8) + status(1).
const responseHeaderLen = 8 + 1

// Request is a decoded request frame (spec §6's "payload = uint64
// requestId | uint16 kind | uint16 version | body").
type Request struct {
	RequestID uint64
	Kind      uint16
	Version   uint16
	Body      []byte
}

// Response is a decoded response frame (spec §6's "response = uint64
// requestId | uint8 status | body").
type Response struct {
	RequestID uint64
	Status    Status
	Body      []byte
}

// WriteRequest encodes and writes req as a length-prefixed frame.
func WriteRequest(w io.Writer, req Request) error {
	payload := make([]byte, requestHeaderLen+len(req.Body))
	binary.BigEndian.PutUint64(payload[0:8], req.RequestID)
	binary.BigEndian.PutUint16(payload[8:10], req.Kind)
	binary.BigEndian.PutUint16(payload[10:12], req.Version)
	copy(payload[requestHeaderLen:], req.Body)
	return writeFrame(w, payload)
}

// ReadRequest reads one length-prefixed frame and decodes it as a request.
func ReadRequest(r io.Reader) (Request, error) {
	payload, err := readFrame(r)
	if err != nil {
		return Request{}, err
	}
	if len(payload) < requestHeaderLen {
		return Request{}, errs.NewProtocol("request frame too short: %d bytes", len(payload))
	}
	return Request{
		RequestID: binary.BigEndian.Uint64(payload[0:8]),
		Kind:      binary.BigEndian.Uint16(payload[8:10]),
		Version:   binary.BigEndian.Uint16(payload[10:12]),
		Body:      payload[requestHeaderLen:],
	}, nil
}

// WriteResponse encodes and writes resp as a length-prefixed frame.
func WriteResponse(w io.Writer, resp Response) error {
	payload := make([]byte, responseHeaderLen+len(resp.Body))
	binary.BigEndian.PutUint64(payload[0:8], resp.RequestID)
	payload[8] = byte(resp.Status)
	copy(payload[responseHeaderLen:], resp.Body)
	return writeFrame(w, payload)
}

// ReadResponse reads one length-prefixed frame and decodes it as a
// response.
func ReadResponse(r io.Reader) (Response, error) {
	payload, err := readFrame(r)
	if err != nil {
		return Response{}, err
	}
	if len(payload) < responseHeaderLen {
		return Response{}, errs.NewProtocol("response frame too short: %d bytes", len(payload))
	}
	return Response{
		RequestID: binary.BigEndian.Uint64(payload[0:8]),
		Status:    Status(payload[8]),
		Body:      payload[responseHeaderLen:],
	}, nil
}

func writeFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return errs.NewCommunication("write frame length", err)
	}
	if _, err := w.Write(payload); err != nil {
		return errs.NewCommunication("write frame payload", err)
	}
	return nil
}

func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, errs.NewCommunication("read frame length", err)
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	if length > maxBodyLength {
		return nil, errs.NewProtocol("frame length %d exceeds maximum %d", length, maxBodyLength)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, errs.NewCommunication("read frame payload", err)
	}
	return payload, nil
}

// StatusForError maps an error from the command layer to the wire status
// byte a response frame carries. CommunicationError and MissingRoute never
// reach this function: they are synthesized locally when a send fails
// before any response arrives, not written into a response frame.
func StatusForError(err error) Status {
	if err == nil {
		return StatusOK
	}
	kind, ok := errs.KindOf(err)
	if !ok {
		return StatusProcessingError
	}
	switch kind {
	case errs.KindValidation:
		return StatusValidationError
	case errs.KindProtocol:
		return StatusProtocolError
	default:
		return StatusProcessingError
	}
}

// ErrorForStatus reconstructs an error of the right taxonomy Kind from a
// response's status byte, for the receiving end of a call.
func ErrorForStatus(status Status, body []byte) error {
	switch status {
	case StatusOK:
		return nil
	case StatusValidationError:
		return errs.NewValidation("%s", bodyOrDefault(body, "validation error"))
	case StatusProtocolError:
		return errs.NewProtocol("%s", bodyOrDefault(body, "protocol error"))
	default:
		return errs.NewProcessing(bodyOrDefault(body, "processing error"), nil)
	}
}

func bodyOrDefault(body []byte, fallback string) string {
	if len(body) == 0 {
		return fallback
	}
	return string(body)
}
