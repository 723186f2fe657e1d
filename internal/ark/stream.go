package ark

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
)

// doneSentinel is the literal marker the upstream sends when no further
// content chunks will arrive.
const doneSentinel = "[DONE]"

// maxLineBytes caps a single SSE line read off the upstream stream.
const maxLineBytes = 1024 * 1024

// Chunk is one increment of a streamed completion. Done is set exactly
// once, on the terminal chunk, which carries no content.
type Chunk struct {
	Content string
	Done    bool
}

// Stream is a lazy sequence of completion chunks backed by one
// long-lived upstream connection. Callers must drain it until Recv
// returns a terminal chunk or an error, and must Close it on every exit
// path so the connection is released.
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// StreamComplete issues a streaming chat-completion request. The caller
// owns the returned Stream.
func (c *Client) StreamComplete(ctx context.Context, model, systemPrompt, userMessage string, params Params) (*Stream, error) {
	req, err := c.newRequest(ctx, model, systemPrompt, userMessage, params, true)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat stream request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := upstreamError(resp)
		resp.Body.Close()
		return nil, err
	}

	scanner := bufio.NewScanner(resp.Body)
	// A single delta frame can exceed bufio's default 64KiB token limit.
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	return &Stream{
		body:    resp.Body,
		scanner: scanner,
	}, nil
}

// Recv returns the next chunk. Lines that are not valid JSON are logged
// and skipped; a malformed frame never aborts the stream. Stream close
// without an explicit sentinel is treated as completion.
func (s *Stream) Recv() (Chunk, error) {
	if s.done {
		return Chunk{Done: true}, nil
	}

	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		if payload == doneSentinel {
			s.done = true
			return Chunk{Done: true}, nil
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			// Lenient decode: malformed frames are noise, not errors.
			log.Printf("Skipping malformed stream chunk: %v", err)
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		return Chunk{Content: chunk.Choices[0].Delta.Content}, nil
	}

	if err := s.scanner.Err(); err != nil {
		return Chunk{}, err
	}
	s.done = true
	return Chunk{Done: true}, nil
}

// Close releases the underlying connection.
func (s *Stream) Close() error {
	return s.body.Close()
}
