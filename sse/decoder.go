// Package sse decodes line-oriented server-sent event streams.
//
// The decoder handles framing only: it finds data-prefixed lines, stops at an
// optional provider-specific termination sentinel, and skips anything else as
// protocol noise (keep-alive comments, event name lines, blank separators).
// Interpreting the payload bytes is the caller's job, so one decoder serves
// every provider that streams over SSE.
package sse

import (
	"bufio"
	"io"
	"strings"
	"sync"
)

const defaultDataPrefix = "data:"

// Decoder reads one event-stream off an underlying reader.
//
// It is single-consumer and not resumable: once Next returns false the stream
// is finished and the underlying reader has been released.
type Decoder struct {
	scanner    *bufio.Scanner
	body       io.Closer
	dataPrefix string
	terminator string

	data      []byte
	err       error
	closeOnce sync.Once
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithDataPrefix overrides the "data:" payload marker.
func WithDataPrefix(prefix string) Option {
	return func(d *Decoder) { d.dataPrefix = prefix }
}

// WithTerminator sets a sentinel line that ends the stream, e.g. Anthropic's
// "event: message_stop". Without one the stream ends at EOF.
func WithTerminator(line string) Option {
	return func(d *Decoder) { d.terminator = line }
}

// NewDecoder wraps a response body. The decoder owns the body and closes it
// when the stream ends, errors, or Close is called.
func NewDecoder(body io.ReadCloser, opts ...Option) *Decoder {
	scanner := bufio.NewScanner(body)
	// Single events can carry whole JSON documents; the default 64K token
	// limit is too small for long completions.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	d := &Decoder{
		scanner:    scanner,
		body:       body,
		dataPrefix: defaultDataPrefix,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Next advances to the next data payload. It returns false when the stream
// terminates, whether by sentinel, EOF, or read error; check Err afterwards.
func (d *Decoder) Next() bool {
	if d.err != nil {
		return false
	}

	for d.scanner.Scan() {
		line := d.scanner.Text()

		if d.terminator != "" && strings.HasPrefix(line, d.terminator) {
			d.close()
			return false
		}

		if strings.HasPrefix(line, d.dataPrefix) {
			payload := strings.TrimSpace(strings.TrimPrefix(line, d.dataPrefix))
			if payload == "" {
				continue
			}
			d.data = []byte(payload)
			return true
		}

		// Anything else is protocol noise: event name lines, comments,
		// blank separators.
	}

	d.err = d.scanner.Err()
	d.close()
	return false
}

// Data returns the payload of the event found by the last successful Next.
func (d *Decoder) Data() []byte { return d.data }

// Err returns the first read error, or nil on clean termination.
func (d *Decoder) Err() error { return d.err }

// Close releases the underlying reader. Safe to call from any exit path,
// including after the decoder closed itself.
func (d *Decoder) Close() error {
	d.close()
	return nil
}

func (d *Decoder) close() {
	d.closeOnce.Do(func() {
		_ = d.body.Close()
	})
}
