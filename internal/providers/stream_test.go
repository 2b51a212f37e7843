package providers

import (
	"errors"
	"io"
	"testing"
)

func chunkedStream(chunks []Chunk, err error) *TokenStream {
	i := 0
	return NewTokenStream(func() (Chunk, error) {
		if err != nil && i == len(chunks) {
			return Chunk{}, err
		}
		if i >= len(chunks) {
			return Chunk{Done: true}, nil
		}
		c := chunks[i]
		i++
		return c, nil
	}, func() {})
}

func TestTokenStream_RecvUntilEOF(t *testing.T) {
	stream := chunkedStream([]Chunk{{Text: "hel"}, {Text: "lo"}}, nil)

	var got string
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got += chunk.Text
	}

	if got != "hello" {
		t.Errorf("unexpected text: %q", got)
	}

	// Recv after EOF keeps returning EOF.
	if _, err := stream.Recv(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF after stream end, got: %v", err)
	}
}

func TestTokenStream_ErrorPropagates(t *testing.T) {
	wantErr := errors.New("stream broke")
	stream := chunkedStream([]Chunk{{Text: "partial"}}, wantErr)

	if _, err := stream.Recv(); err != nil {
		t.Fatalf("first chunk should succeed: %v", err)
	}
	if _, err := stream.Recv(); !errors.Is(err, wantErr) {
		t.Fatalf("expected stream error, got: %v", err)
	}
}

func TestTokenStream_CloseIsIdempotent(t *testing.T) {
	closed := 0
	stream := NewTokenStream(func() (Chunk, error) {
		return Chunk{Done: true}, nil
	}, func() { closed++ })

	stream.Close()
	stream.Close()

	if closed != 1 {
		t.Errorf("stop must run once, ran %d times", closed)
	}
}
