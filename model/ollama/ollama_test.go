package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.False(t, req.Stream)
		json.NewEncoder(w).Encode(generateResponse{Response: "hello from ollama", Done: true})
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.BaseURL = srv.URL
		o.Model = "test-model"
	})

	out, err := m.Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello from ollama", out)
	assert.Equal(t, "ollama", m.Info().Provider)
}

func TestCompleteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) { o.BaseURL = srv.URL })
	_, err := m.Complete(context.Background(), "hi")
	assert.ErrorContains(t, err, "404")
}
