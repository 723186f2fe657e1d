package ark

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func streamServer(t *testing.T, lines ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range lines {
			w.Write([]byte(line + "\n\n"))
		}
	}))
}

func collect(t *testing.T, s *Stream) []Chunk {
	t.Helper()
	defer s.Close()

	var chunks []Chunk
	for {
		chunk, err := s.Recv()
		if err != nil {
			t.Fatalf("unexpected stream error: %v", err)
		}
		chunks = append(chunks, chunk)
		if chunk.Done {
			return chunks
		}
	}
}

func TestStreamTwoChunksThenDone(t *testing.T) {
	srv := streamServer(t,
		`data: {"choices":[{"delta":{"content":"你"}}]}`,
		`data: {"choices":[{"delta":{"content":"好"}}]}`,
		`data: [DONE]`,
	)
	defer srv.Close()

	c := NewClientWithBaseURL("k", srv.URL)
	s, err := c.StreamComplete(context.Background(), "m", "sys", "msg", Params{})
	if err != nil {
		t.Fatal(err)
	}

	chunks := collect(t, s)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 2 content + 1 terminal", len(chunks))
	}
	if chunks[0].Content != "你" || chunks[1].Content != "好" {
		t.Errorf("contents = %q, %q", chunks[0].Content, chunks[1].Content)
	}
	if chunks[0].Done || chunks[1].Done || !chunks[2].Done {
		t.Errorf("terminal flags wrong: %+v", chunks)
	}
}

func TestStreamSkipsMalformedLines(t *testing.T) {
	srv := streamServer(t,
		`data: {"choices":[{"delta":{"content":"a"}}]}`,
		`data: {not json at all`,
		`data: {"choices":[{"delta":{"content":"b"}}]}`,
		`data: [DONE]`,
	)
	defer srv.Close()

	c := NewClientWithBaseURL("k", srv.URL)
	s, err := c.StreamComplete(context.Background(), "m", "sys", "msg", Params{})
	if err != nil {
		t.Fatal(err)
	}

	chunks := collect(t, s)
	if len(chunks) != 3 {
		t.Fatalf("malformed line should be skipped, got %d chunks", len(chunks))
	}
	if chunks[0].Content != "a" || chunks[1].Content != "b" {
		t.Errorf("contents = %q, %q", chunks[0].Content, chunks[1].Content)
	}
}

func TestStreamHandlesLongDeltaLine(t *testing.T) {
	// Larger than bufio.Scanner's default 64KiB token limit.
	long := strings.Repeat("长", 40*1024)
	srv := streamServer(t,
		`data: {"choices":[{"delta":{"content":"`+long+`"}}]}`,
		`data: [DONE]`,
	)
	defer srv.Close()

	c := NewClientWithBaseURL("k", srv.URL)
	s, err := c.StreamComplete(context.Background(), "m", "sys", "msg", Params{})
	if err != nil {
		t.Fatal(err)
	}

	chunks := collect(t, s)
	if len(chunks) != 2 || !chunks[1].Done {
		t.Fatalf("got %d chunks, want 1 content + 1 terminal", len(chunks))
	}
	if chunks[0].Content != long {
		t.Errorf("long delta truncated: got %d bytes, want %d", len(chunks[0].Content), len(long))
	}
}

func TestStreamEndsWithoutSentinel(t *testing.T) {
	srv := streamServer(t,
		`data: {"choices":[{"delta":{"content":"only"}}]}`,
	)
	defer srv.Close()

	c := NewClientWithBaseURL("k", srv.URL)
	s, err := c.StreamComplete(context.Background(), "m", "sys", "msg", Params{})
	if err != nil {
		t.Fatal(err)
	}

	chunks := collect(t, s)
	if len(chunks) != 2 || !chunks[1].Done {
		t.Errorf("stream close should act as completion, got %+v", chunks)
	}
}

func TestStreamNon2xxFailsUpfront(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("k", srv.URL)
	_, err := c.StreamComplete(context.Background(), "m", "sys", "msg", Params{})

	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UpstreamError, got %v", err)
	}
	if ue.Body != "rate limited" {
		t.Errorf("body = %q", ue.Body)
	}
}
