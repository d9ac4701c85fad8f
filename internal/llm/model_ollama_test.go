package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-screener-go/internal/types"
)

// newOllamaStub 启动一个模拟Ollama的httptest服务器
func newOllamaStub(t *testing.T, chatContent string, models []string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method, "chat接口应使用POST")

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req), "请求体应为合法JSON")
		assert.Equal(t, false, req["stream"], "应使用非流式请求")

		resp := map[string]interface{}{
			"model":   req["model"],
			"message": map[string]string{"role": "assistant", "content": chatContent},
			"done":    true,
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		modelEntries := make([]map[string]interface{}, 0, len(models))
		for _, name := range models {
			modelEntries = append(modelEntries, map[string]interface{}{"name": name, "size": 1024})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"models": modelEntries})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestGenerate(t *testing.T) {
	server := newOllamaStub(t, `{"result": "ok"}`, nil)
	m := NewOllamaChatModel(server.URL, "qwen2.5:7b", WithJSONFormat(true))

	resp, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("You are a parser."),
		schema.UserMessage("parse this"),
	})
	require.NoError(t, err, "Generate不应返回错误")
	require.NotNil(t, resp, "响应不应为nil")
	assert.Equal(t, schema.Assistant, resp.Role, "响应角色应为assistant")
	assert.Equal(t, `{"result": "ok"}`, resp.Content, "响应内容不符")
}

func TestGenerateSendsModelAndFormat(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": map[string]string{"role": "assistant", "content": "hi"},
			"done":    true,
		})
	}))
	defer server.Close()

	m := NewOllamaChatModel(server.URL, "custom-model", WithJSONFormat(true), WithTemperature(0.2), WithMaxTokens(512))
	_, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hello")})
	require.NoError(t, err)

	assert.Equal(t, "custom-model", captured["model"], "请求应携带指定的模型名")
	assert.Equal(t, "json", captured["format"], "开启JSON格式时请求应携带format字段")
	opts, ok := captured["options"].(map[string]interface{})
	require.True(t, ok, "请求应携带options")
	assert.Equal(t, 0.2, opts["temperature"], "温度参数不符")
	assert.Equal(t, 512.0, opts["num_predict"], "token上限参数不符")
}

// TestGenerateServerError Ollama返回非200时应归类为模型不可达
func TestGenerateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	m := NewOllamaChatModel(server.URL, "missing-model")
	_, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.Error(t, err, "非200响应应返回错误")
	assert.True(t, errors.Is(err, types.ErrModelUnreachable), "错误应可识别为模型不可达")
}

// TestGenerateConnectionRefused 服务不可达时应归类为模型不可达
func TestGenerateConnectionRefused(t *testing.T) {
	// 关闭服务器制造连接拒绝
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	m := NewOllamaChatModel(url, "qwen2.5:7b")
	_, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.Error(t, err, "连接拒绝应返回错误")
	assert.True(t, errors.Is(err, types.ErrModelUnreachable), "错误应可识别为模型不可达")
}

// TestGenerateOllamaErrorField 响应体携带error字段时也视为模型侧失败
func TestGenerateOllamaErrorField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"error": "model is loading"})
	}))
	defer server.Close()

	m := NewOllamaChatModel(server.URL, "qwen2.5:7b")
	_, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model is loading", "错误应携带Ollama的错误信息")
}

func TestListModels(t *testing.T) {
	server := newOllamaStub(t, "", []string{"qwen2.5:7b", "llama3:8b"})
	m := NewOllamaChatModel(server.URL, "qwen2.5:7b")

	models, err := m.ListModels(context.Background())
	require.NoError(t, err, "ListModels不应返回错误")
	assert.Equal(t, []string{"qwen2.5:7b", "llama3:8b"}, models, "模型列表不符")
}

func TestPing(t *testing.T) {
	server := newOllamaStub(t, "", []string{"qwen2.5:7b"})

	loaded := NewOllamaChatModel(server.URL, "qwen2.5:7b")
	ok, err := loaded.Ping(context.Background())
	require.NoError(t, err, "Ping不应返回错误")
	assert.True(t, ok, "已加载的模型应探测成功")

	notLoaded := NewOllamaChatModel(server.URL, "mistral:7b")
	ok, err = notLoaded.Ping(context.Background())
	require.NoError(t, err, "运行时可达时Ping不应返回错误")
	assert.False(t, ok, "未加载的模型应探测失败")
}

func TestNewOllamaChatModelDefaults(t *testing.T) {
	m := NewOllamaChatModel("", "")
	assert.Equal(t, "qwen2.5:7b", m.ModelName(), "空模型名应回退到默认模型")
	assert.Equal(t, defaultOllamaBaseURL, m.baseURL, "空地址应回退到默认地址")

	trimmed := NewOllamaChatModel("http://host:11434/", "m")
	assert.Equal(t, "http://host:11434", trimmed.baseURL, "地址末尾的斜杠应被去掉")
}
