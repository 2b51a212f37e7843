package providers

import "io"

// Chunk is one unit of streamed assistant output. The final chunk carries
// Done=true and no text; it is the explicit end-of-stream sentinel.
type Chunk struct {
	Text string
	Done bool
}

// TokenStream is a finite, cancellable sequence of text chunks. It hides the
// vendor SDK's iteration protocol: downstream code only ever sees Recv/Close.
type TokenStream struct {
	recv   func() (Chunk, error)
	stop   func()
	closed bool
	done   bool
}

// NewTokenStream wraps a pull function and a cancel function into a stream.
func NewTokenStream(recv func() (Chunk, error), stop func()) *TokenStream {
	return &TokenStream{recv: recv, stop: stop}
}

// Recv returns the next chunk. After the Done sentinel has been delivered,
// further calls return io.EOF.
func (s *TokenStream) Recv() (Chunk, error) {
	if s.closed || s.done {
		return Chunk{}, io.EOF
	}

	chunk, err := s.recv()
	if err != nil {
		s.Close()
		return Chunk{}, err
	}
	if chunk.Done {
		s.done = true
	}
	return chunk, nil
}

// Close releases the underlying vendor iterator. Safe to call more than once.
func (s *TokenStream) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.stop != nil {
		s.stop()
	}
}
