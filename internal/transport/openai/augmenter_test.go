package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func chatServer(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 1 || !strings.Contains(req.Messages[0].Content, "想看科幻电影") {
			t.Errorf("prompt does not carry the query: %+v", req.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "model overloaded", "type": "server_error"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
}

func newTestAugmenter(url string) *Augmenter {
	return NewAugmenter(&AugmenterConfig{
		APIKey:    "test-key",
		BaseURL:   url,
		Model:     "qwen2.5-0.5b-instruct",
		MaxTokens: 128,
		Timeout:   2 * time.Second,
		Logger:    zap.NewNop(),
	})
}

func TestAugmenter_Augment(t *testing.T) {
	server := chatServer(t, "  《星际穿越》是一部关于太空探索的科幻电影。 \n", http.StatusOK)
	defer server.Close()

	got, err := newTestAugmenter(server.URL).Augment(context.Background(), "想看科幻电影")
	if err != nil {
		t.Fatalf("Augment failed: %v", err)
	}
	if got != "《星际穿越》是一部关于太空探索的科幻电影。" {
		t.Errorf("unexpected augmentation %q", got)
	}
}

func TestAugmenter_StripsPromptEcho(t *testing.T) {
	echo := "请为以下用户问题生成一个假设的电影推荐回答（只需要写电影相关内容，不要写推荐理由）：\n\n用户问题: 想看科幻电影\n\n假设回答: 太空冒险"
	server := chatServer(t, echo, http.StatusOK)
	defer server.Close()

	got, err := newTestAugmenter(server.URL).Augment(context.Background(), "想看科幻电影")
	if err != nil {
		t.Fatalf("Augment failed: %v", err)
	}
	if got != "太空冒险" {
		t.Errorf("expected echo stripped, got %q", got)
	}
}

func TestAugmenter_APIError(t *testing.T) {
	server := chatServer(t, "", http.StatusServiceUnavailable)
	defer server.Close()

	if _, err := newTestAugmenter(server.URL).Augment(context.Background(), "想看科幻电影"); err == nil {
		t.Fatal("expected error for 503 response")
	}
}
