package sse

import (
	"io"
	"strings"
	"testing"
)

type trackedBody struct {
	io.Reader
	closed int
}

func (b *trackedBody) Close() error {
	b.closed++
	return nil
}

func body(s string) *trackedBody {
	return &trackedBody{Reader: strings.NewReader(s)}
}

func collect(t *testing.T, d *Decoder) []string {
	t.Helper()
	var payloads []string
	for d.Next() {
		payloads = append(payloads, string(d.Data()))
	}
	if err := d.Err(); err != nil {
		t.Fatalf("unexpected decoder error: %v", err)
	}
	return payloads
}

func TestDecoderBasic(t *testing.T) {
	stream := "data: first\n\ndata: second\n\n"
	d := NewDecoder(body(stream))

	got := collect(t, d)
	want := []string{"first", "second"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("payload %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDecoderSkipsNoise(t *testing.T) {
	stream := strings.Join([]string{
		": keep-alive comment",
		"event: message_start",
		"data: payload",
		"",
		"retry: 3000",
		"data: ",
		"data: second",
		"",
	}, "\n")
	d := NewDecoder(body(stream))

	got := collect(t, d)
	if len(got) != 2 || got[0] != "payload" || got[1] != "second" {
		t.Errorf("got %v, want [payload second]", got)
	}
}

func TestDecoderTerminator(t *testing.T) {
	stream := strings.Join([]string{
		"data: before",
		"event: message_stop",
		"data: after",
		"",
	}, "\n")
	b := body(stream)
	d := NewDecoder(b, WithTerminator("event: message_stop"))

	got := collect(t, d)
	if len(got) != 1 || got[0] != "before" {
		t.Errorf("got %v, want [before]", got)
	}
	if b.closed == 0 {
		t.Error("body should be closed after terminator")
	}
}

func TestDecoderCustomPrefix(t *testing.T) {
	stream := "payload: one\ndata: ignored-prefix-mismatch\npayload: two\n"
	d := NewDecoder(body(stream), WithDataPrefix("payload:"))

	got := collect(t, d)
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Errorf("got %v, want [one two]", got)
	}
}

func TestDecoderLargePayload(t *testing.T) {
	big := strings.Repeat("x", 200*1024)
	d := NewDecoder(body("data: " + big + "\n"))

	if !d.Next() {
		t.Fatalf("expected one event, decoder error: %v", d.Err())
	}
	if len(d.Data()) != len(big) {
		t.Errorf("payload length = %d, want %d", len(d.Data()), len(big))
	}
}

func TestDecoderCloseIdempotent(t *testing.T) {
	b := body("data: x\n")
	d := NewDecoder(b)

	for range 3 {
		if err := d.Close(); err != nil {
			t.Fatalf("unexpected close error: %v", err)
		}
	}
	if b.closed != 1 {
		t.Errorf("body closed %d times, want 1", b.closed)
	}
}

func TestDecoderClosesAtEOF(t *testing.T) {
	b := body("data: x\n")
	d := NewDecoder(b)

	for d.Next() {
	}
	if b.closed != 1 {
		t.Errorf("body closed %d times after EOF, want 1", b.closed)
	}
}
