package model

// ChunkKind tags one normalized unit of provider output.
type ChunkKind int

const (
	// ChunkStart signals the provider call has been dispatched; it always
	// precedes any network result.
	ChunkStart ChunkKind = iota
	// ChunkDelta carries one increment of answer text.
	ChunkDelta
	// ChunkError carries a human-readable failure and terminates the stream.
	ChunkError
	// ChunkDone terminates a successful stream.
	ChunkDone
)

// StreamChunk is the normalized form every adapter reduces its wire protocol
// to. A stream is Start, zero or more Deltas, then exactly one terminal chunk
// (Done or Error).
type StreamChunk struct {
	Kind ChunkKind
	Text string
	Err  string
}

// Terminal reports whether the chunk ends the stream.
func (c StreamChunk) Terminal() bool {
	return c.Kind == ChunkDone || c.Kind == ChunkError
}

// Start builds the leading chunk of every stream.
func Start() StreamChunk { return StreamChunk{Kind: ChunkStart} }

// Delta builds a text-increment chunk.
func Delta(text string) StreamChunk { return StreamChunk{Kind: ChunkDelta, Text: text} }

// Fail builds a terminal error chunk.
func Fail(message string) StreamChunk { return StreamChunk{Kind: ChunkError, Err: message} }

// Done builds the terminal success chunk.
func Done() StreamChunk { return StreamChunk{Kind: ChunkDone} }
