// Package sse decodes the backend's run event feed: a long-lived text stream
// of blank-line-delimited frames carrying event, data, and id fields. The
// decoder is pre-semantic; it knows nothing about chat runs.
package sse

import (
	"errors"
	"io"
	"iter"
	"strings"
)

// Frame is one self-contained unit of the event feed. A frame without a data
// field is still a valid frame; callers discriminate on Event, not on the
// presence of Data.
type Frame struct {
	Event string
	Data  string
	ID    string
}

const readChunkSize = 4096

// Read returns an iterator over the frames carried by r. Bytes arrive at
// whatever granularity the transport delivers them; the decoder accumulates
// them and emits one frame per complete blank-line-terminated segment, in
// order. The resulting frame sequence is identical for any chunking of the
// same input. On end of stream any trailing incomplete segment is discarded
// and the iteration ends cleanly; any other read error is yielded to the
// caller and ends the iteration.
func Read(r io.Reader) iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		chunk := make([]byte, readChunkSize)
		var buffer string

		for {
			n, err := r.Read(chunk)
			if n > 0 {
				buffer += string(chunk[:n])
				for {
					segment, rest, found := strings.Cut(buffer, "\n\n")
					if !found {
						break
					}
					buffer = rest
					if !yield(parseFrame(segment), nil) {
						return
					}
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				yield(Frame{}, err)
				return
			}
		}
	}
}

// parseFrame parses one segment's lines independently. A repeated event field
// wins with its last value, data values concatenate in order, and lines with
// an unrecognized field name are ignored.
func parseFrame(segment string) Frame {
	var f Frame
	var data strings.Builder

	for _, line := range strings.Split(segment, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "event:"):
			f.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		case strings.HasPrefix(line, "id:"):
			f.ID = strings.TrimSpace(strings.TrimPrefix(line, "id:"))
		}
	}

	f.Data = data.String()
	return f
}
