package proto

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Frames on the wire are a 4-byte big-endian payload length followed by
// that many bytes of JSON. The reader buffers internally, so a frame split
// across socket reads, or several frames arriving in one read, both
// reassemble correctly.

// DefaultMaxFrameBytes bounds a single payload; base64 attachments travel
// inline, so the default is generous.
const DefaultMaxFrameBytes = 4 << 20

const frameHeaderSize = 4

var (
	// ErrFrameTooLarge is returned when a frame header announces a payload
	// above the configured limit.
	ErrFrameTooLarge = errors.New("frame exceeds size limit")
	// ErrEmptyFrame is returned for a zero-length payload.
	ErrEmptyFrame = errors.New("empty frame")
)

// FrameReader decodes length-prefixed frames from a byte stream.
type FrameReader struct {
	r   *bufio.Reader
	max int
}

// NewFrameReader wraps r. maxBytes <= 0 selects DefaultMaxFrameBytes.
func NewFrameReader(r io.Reader, maxBytes int) *FrameReader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFrameBytes
	}
	return &FrameReader{r: bufio.NewReader(r), max: maxBytes}
}

// ReadFrame blocks until a complete payload is available and returns it.
// It returns io.EOF when the stream ends cleanly between frames and
// io.ErrUnexpectedEOF when it ends mid-frame.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(fr.r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("short frame header: %w", err)
		}
		return nil, err
	}

	size := binary.BigEndian.Uint32(header[:])
	if size == 0 {
		return nil, ErrEmptyFrame
	}
	if int64(size) > int64(fr.max) {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		return nil, fmt.Errorf("short frame payload: %w", err)
	}
	return payload, nil
}

// FrameWriter encodes length-prefixed frames onto a byte stream.
// It is not safe for concurrent use; each session has a single writer.
type FrameWriter struct {
	w   io.Writer
	max int
}

// NewFrameWriter wraps w. maxBytes <= 0 selects DefaultMaxFrameBytes.
func NewFrameWriter(w io.Writer, maxBytes int) *FrameWriter {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFrameBytes
	}
	return &FrameWriter{w: w, max: maxBytes}
}

// WriteFrame writes one payload with its length prefix.
func (fw *FrameWriter) WriteFrame(payload []byte) error {
	if len(payload) == 0 {
		return ErrEmptyFrame
	}
	if len(payload) > fw.max {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}

	buf := make([]byte, frameHeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[frameHeaderSize:], payload)

	if _, err := fw.w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
