package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// HTTPDispatcher posts an envelope's raw bytes to a configured endpoint:
// fire and wait for a 2xx, no built-in retry, so durability across this
// boundary is exactly what the remote endpoint's own retry policy
// provides.
type HTTPDispatcher struct {
	Client   *http.Client
	Endpoint string
}

// NewHTTPDispatcher posts to endpoint using client, or http.DefaultClient
// if client is nil.
func NewHTTPDispatcher(endpoint string, client *http.Client) *HTTPDispatcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPDispatcher{Client: client, Endpoint: endpoint}
}

func (d *HTTPDispatcher) Dispatch(ctx context.Context, rawPayload []byte, _ any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Endpoint, bytes.NewReader(rawPayload))
	if err != nil {
		return fmt.Errorf("http dispatch: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.Client.Do(req)
	if err != nil {
		return fmt.Errorf("http dispatch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("http dispatch: endpoint returned %d: %s", resp.StatusCode, body)
	}
	return nil
}

// Handler returns an http.Handler hosting the processing endpoint: a POST
// whose body is the envelope's raw JSON bytes is handed to sink; a
// malformed body produces a 4xx, a sink error a 422, and success an empty
// 2xx body. This is a framework convenience layered on top of the core,
// not part of the step protocol itself.
func Handler(sink Sink) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, 10<<20))
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}
		if err := sink(r.Context(), body); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

var _ Dispatcher = (*HTTPDispatcher)(nil)
