package dispatch_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corewire/stepflow/dispatch"
)

func TestHTTPDispatcherPostsPayloadAndSucceedsOn2xx(t *testing.T) {
	var gotBody []byte
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := dispatch.NewHTTPDispatcher(server.URL, nil)
	err := d.Dispatch(context.Background(), []byte(`{"event":{"type":"foo"}}`), nil)
	require.NoError(t, err)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, `{"event":{"type":"foo"}}`, string(gotBody))
}

func TestHTTPDispatcherReturnsErrorOnNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	d := dispatch.NewHTTPDispatcher(server.URL, nil)
	err := d.Dispatch(context.Background(), []byte(`{}`), nil)
	assert.Error(t, err)
}

func TestHandlerRejectsNonPost(t *testing.T) {
	h := dispatch.Handler(func(ctx context.Context, rawPayload []byte) error { return nil })
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandlerReturns422OnSinkError(t *testing.T) {
	h := dispatch.Handler(func(ctx context.Context, rawPayload []byte) error {
		return errors.New("rejected")
	})
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"event":{"type":"foo"}}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandlerReturns200OnSuccess(t *testing.T) {
	var received []byte
	h := dispatch.Handler(func(ctx context.Context, rawPayload []byte) error {
		received = rawPayload
		return nil
	})
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"event":{"type":"foo"}}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"event":{"type":"foo"}}`, string(received))
}
