package antrian

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/api/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"` + chi.URLParam(r, "id") + `","page":"` + r.URL.Query().Get("page") + `"}`))
	})
	r.Post("/api/orders", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Content-Type", r.Header.Get("Content-Type"))
		w.Header().Set("X-Auth", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(body)
	})
	r.Get("/api/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})
	r.Get("/api/large", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 100)))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPTransportGet(t *testing.T) {
	srv := newTestAPI(t)
	tr := NewHTTPTransport(nil, srv.URL+"/")

	resp, err := tr.Send(context.Background(), &Request{
		Method: http.MethodGet,
		URL:    "/api/items/42",
		Params: url.Values{"page": {"3"}},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var item struct {
		ID   string `json:"id"`
		Page string `json:"page"`
	}
	require.NoError(t, resp.Decode(&item))
	assert.Equal(t, "42", item.ID)
	assert.Equal(t, "3", item.Page)
}

func TestHTTPTransportPostWithHeaders(t *testing.T) {
	srv := newTestAPI(t)
	tr := NewHTTPTransport(srv.Client(), srv.URL)
	tr.Headers = func(_ context.Context, h http.Header) error {
		h.Set("Authorization", "Bearer token")
		return nil
	}

	resp, err := tr.Send(context.Background(), &Request{
		Method: "post",
		URL:    "/api/orders",
		Body:   []byte(`{"sku":"a"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, `{"sku":"a"}`, string(resp.Body))
	assert.Equal(t, "application/json", resp.Header.Get("X-Content-Type"))
	assert.Equal(t, "Bearer token", resp.Header.Get("X-Auth"))
}

func TestHTTPTransportErrorStatusIsAResponse(t *testing.T) {
	srv := newTestAPI(t)
	tr := NewHTTPTransport(nil, srv.URL)

	resp, err := tr.Send(context.Background(), getRequest("/api/broken"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHTTPTransportAbsoluteURLAndBodyLimit(t *testing.T) {
	srv := newTestAPI(t)
	tr := NewHTTPTransport(nil, "http://unused.invalid")
	tr.MaxBodyBytes = 10

	resp, err := tr.Send(context.Background(), getRequest(srv.URL+"/api/large"))
	require.NoError(t, err)
	assert.Len(t, resp.Body, 10)
}

func TestHTTPTransportNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	tr := NewHTTPTransport(nil, addr)
	resp, err := tr.Send(context.Background(), getRequest("/api/items"))
	assert.Error(t, err)
	assert.Nil(t, resp)
}

func TestHTTPTransportHeaderFuncError(t *testing.T) {
	srv := newTestAPI(t)
	tr := NewHTTPTransport(nil, srv.URL)
	tokenErr := errors.New("no session")
	tr.Headers = func(context.Context, http.Header) error { return tokenErr }

	_, err := tr.Send(context.Background(), getRequest("/api/items/1"))
	assert.ErrorIs(t, err, tokenErr)
}

func TestOrchestratorOverHTTP(t *testing.T) {
	srv := newTestAPI(t)
	o := New(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	require.True(t, o.IsValid())

	resp, err := o.Get(context.Background(), "/api/items/7", nil)
	require.NoError(t, err)
	assert.False(t, resp.FromCache)

	resp, err = o.Get(context.Background(), "/api/items/7", nil)
	require.NoError(t, err)
	assert.True(t, resp.FromCache)
}
