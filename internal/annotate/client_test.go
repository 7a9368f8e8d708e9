package annotate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClient_Annotate(t *testing.T) {
	t.Run("returns the annotation", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/analyze", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"sentiment":"positive","summary":"a greeting"}`))
		}))
		defer srv.Close()

		a := NewClient(srv.URL).Annotate(context.Background(), "hello there")
		assert.Equal(t, "positive", a.Sentiment)
		assert.Equal(t, "a greeting", a.Summary)
	})

	t.Run("degrades silently on failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		a := NewClient(srv.URL).Annotate(context.Background(), "hello")
		assert.Equal(t, Annotation{}, a)
	})

	t.Run("degrades silently when unreachable", func(t *testing.T) {
		a := NewClient("http://127.0.0.1:1").Annotate(context.Background(), "hello")
		assert.Equal(t, Annotation{}, a)
	})

	t.Run("skips empty text and empty config", func(t *testing.T) {
		assert.Equal(t, Annotation{}, NewClient("").Annotate(context.Background(), "hello"))
		assert.Equal(t, Annotation{}, NewClient("http://example.com").Annotate(context.Background(), ""))
	})
}
