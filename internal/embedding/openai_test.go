package embedding

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestOpenAI(t *testing.T, h http.HandlerFunc) *OpenAIEmbedder {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	e, err := NewOpenAIEmbedder(OpenAIConfig{BaseURL: srv.URL, APIKey: "k", Model: "m", Dimensions: 3})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestOpenAIEmbedder_openAIShape(t *testing.T) {
	e := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Errorf("Authorization = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"input":"hello"`) {
			t.Errorf("body = %s", body)
		}
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	})
	vec, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 3 || vec[2] != 0.3 {
		t.Errorf("vec = %v", vec)
	}
}

func TestOpenAIEmbedder_ollamaShape(t *testing.T) {
	e := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embedding":[1,2,3]}`))
	})
	vec, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 3 || vec[0] != 1 {
		t.Errorf("vec = %v", vec)
	}
}

func TestOpenAIEmbedder_classifiesErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
		tooLong   bool
	}{
		{"rate limited", http.StatusTooManyRequests, `{}`, true, false},
		{"server error", http.StatusBadGateway, `{}`, true, false},
		{"payload too large", http.StatusRequestEntityTooLarge, `{}`, false, true},
		{"context overflow", http.StatusBadRequest, `{"error":{"code":"context_length_exceeded"}}`, false, true},
		{"bad request", http.StatusBadRequest, `{"error":{"message":"unknown model"}}`, false, false},
		{"unauthorized", http.StatusUnauthorized, `{}`, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := e.Embed(context.Background(), "hello")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrTransient); got != tt.transient {
				t.Errorf("transient = %v, want %v (%v)", got, tt.transient, err)
			}
			if got := IsInputTooLong(err); got != tt.tooLong {
				t.Errorf("too long = %v, want %v (%v)", got, tt.tooLong, err)
			}
		})
	}
}

func TestOpenAIEmbedder_emptyResponse(t *testing.T) {
	e := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	})
	if _, err := e.Embed(context.Background(), "hello"); err == nil {
		t.Error("expected error for empty response")
	}
}

func TestOpenAIEmbedder_connectionRefusedIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	e, err := NewOpenAIEmbedder(OpenAIConfig{BaseURL: url, Dimensions: 3})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Embed(context.Background(), "hello"); !IsTransient(err) {
		t.Errorf("err = %v, want transient", err)
	}
}
