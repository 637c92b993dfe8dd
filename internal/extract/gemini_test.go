package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/julianstephens/habitloop/internal/errors"
)

func reply(text string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"candidates": []interface{}{
			map[string]interface{}{
				"content": map[string]interface{}{
					"role":  "model",
					"parts": []interface{}{map[string]string{"text": text}},
				},
			},
		},
	})
	return string(b)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *GeminiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGeminiClient("test-key", WithBaseURL(srv.URL+"/"), WithModel("test-model"), WithTimeout(time.Second))
}

func TestGeminiExtract(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Contains(t, req.Contents[0].Parts[0].Text, `"Ran 5 miles and meditated"`)
		assert.Equal(t, "application/json", req.GenerationConfig.ResponseMimeType)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply("```json\n" +
			`[{"activity":"running","quantity":5,"unit":"miles","category":"fitness","confidence":0.95},` +
			`{"activity":"meditation","quantity":10,"unit":"minutes","category":"self_care","confidence":0.9}]` +
			"\n```")))
	})

	items, err := client.Extract(context.Background(), "Ran 5 miles and meditated")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "running", items[0].Activity)
	assert.Equal(t, "meditation", items[1].Activity)
}

func TestGeminiExtractEmptyArray(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(reply("[]")))
	})

	items, err := client.Extract(context.Background(), "hello there")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGeminiExtractFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`))
		}},
		{"rate limited", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}},
		{"malformed envelope", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"candidates":`))
		}},
		{"no candidates", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"candidates":[]}`))
		}},
		{"prose reply", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(reply("Sorry, I can't help with that.")))
		}},
		{"slow upstream", func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(1500 * time.Millisecond)
			_, _ = w.Write([]byte(reply("[]")))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)
			_, err := client.Extract(context.Background(), "ran")
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrUpstreamExtraction)
			assert.Equal(t, "failed to parse habit text", apperrors.MessageOf(err))
		})
	}
}

func TestGeminiExtractMissingKey(t *testing.T) {
	client := NewGeminiClient("")
	_, err := client.Extract(context.Background(), "ran")
	assert.ErrorIs(t, err, apperrors.ErrUpstreamExtraction)
}

func TestGeminiExtractCanceled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(reply("[]")))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Extract(ctx, "ran")
	assert.ErrorIs(t, err, apperrors.ErrUpstreamExtraction)
	assert.ErrorIs(t, err, context.Canceled)
}
