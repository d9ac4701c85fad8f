package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"resume-screener-go/internal/logger"
	"resume-screener-go/internal/types"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "qwen2.5:7b"
	defaultOllamaTimeout = 120 * time.Second
)

// OllamaChatModel 实现了 model.ChatModel 和 model.ToolCallingChatModel 接口，
// 通过 Ollama 的 /api/chat 接口与本地部署的模型交互。
type OllamaChatModel struct {
	baseURL     string
	modelName   string
	httpClient  *http.Client
	temperature float64
	maxTokens   int
	jsonFormat  bool // 为true时请求 format:"json"，强制模型输出合法JSON
	boundTools  []*schema.ToolInfo
}

// Option 配置 OllamaChatModel 的可选参数
type Option func(*OllamaChatModel)

// WithTemperature 设置采样温度，结构化抽取场景建议接近0
func WithTemperature(t float64) Option {
	return func(m *OllamaChatModel) {
		m.temperature = t
	}
}

// WithMaxTokens 设置生成token上限（Ollama的num_predict）
func WithMaxTokens(n int) Option {
	return func(m *OllamaChatModel) {
		m.maxTokens = n
	}
}

// WithTimeout 设置HTTP请求超时
func WithTimeout(d time.Duration) Option {
	return func(m *OllamaChatModel) {
		m.httpClient.Timeout = d
	}
}

// WithJSONFormat 要求Ollama以JSON格式约束输出
func WithJSONFormat(enabled bool) Option {
	return func(m *OllamaChatModel) {
		m.jsonFormat = enabled
	}
}

// WithHTTPClient 替换HTTP客户端，测试时指向httptest服务器
func WithHTTPClient(client *http.Client) Option {
	return func(m *OllamaChatModel) {
		m.httpClient = client
	}
}

// NewOllamaChatModel 创建一个新的 OllamaChatModel 实例
func NewOllamaChatModel(baseURL, modelName string, opts ...Option) *OllamaChatModel {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultOllamaBaseURL
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = defaultOllamaModel
	}

	m := &OllamaChatModel{
		baseURL:     strings.TrimRight(baseURL, "/"),
		modelName:   modelName,
		httpClient:  &http.Client{Timeout: defaultOllamaTimeout},
		temperature: 0.05,
	}
	for _, opt := range opts {
		opt(m)
	}

	logger.Debug().
		Str("base_url", m.baseURL).
		Str("model", m.modelName).
		Msg("初始化Ollama聊天模型客户端")

	return m
}

// ModelName 返回当前使用的模型名称
func (m *OllamaChatModel) ModelName() string {
	return m.modelName
}

// --- Ollama API 请求/响应结构 ---

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Format   string              `json:"format,omitempty"`
	Options  ollamaOptions       `json:"options"`
}

type ollamaChatResponse struct {
	Model   string            `json:"model"`
	Message ollamaChatMessage `json:"message"`
	Done    bool              `json:"done"`
	Error   string            `json:"error,omitempty"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name       string `json:"name"`
		Size       int64  `json:"size"`
		ModifiedAt string `json:"modified_at"`
	} `json:"models"`
}

// Generate 实现 model.ChatModel 接口
func (m *OllamaChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	// 工具配置通过 BindTools/WithTools 完成，这里的通用选项暂不消费
	for _, opt := range options {
		_ = opt
	}

	reqMessages := make([]ollamaChatMessage, 0, len(messages))
	for _, msg := range messages {
		reqMessages = append(reqMessages, ollamaChatMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	reqPayload := ollamaChatRequest{
		Model:    m.modelName,
		Messages: reqMessages,
		Stream:   false,
		Options: ollamaOptions{
			Temperature: m.temperature,
			NumPredict:  m.maxTokens,
		},
	}
	if m.jsonFormat {
		reqPayload.Format = "json"
	}

	jsonData, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	url := m.baseURL + "/api/chat"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrModelUnreachable, err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: 状态 %s: %s", types.ErrModelUnreachable, httpResp.Status, string(bodyBytes))
	}

	var ollamaResp ollamaChatResponse
	if err := json.Unmarshal(bodyBytes, &ollamaResp); err != nil {
		return nil, fmt.Errorf("%w: 反序列化失败: %v", types.ErrMalformedModelResponse, err)
	}
	if ollamaResp.Error != "" {
		return nil, fmt.Errorf("%w: %s", types.ErrModelUnreachable, ollamaResp.Error)
	}

	role := ollamaResp.Message.Role
	if role == "" {
		role = "assistant"
	}

	return &schema.Message{
		Role:    schema.RoleType(role),
		Content: ollamaResp.Message.Content,
	}, nil
}

// Stream 实现 model.ChatModel 接口 (未实现，当前所有调用均为一次性生成)
func (m *OllamaChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("OllamaChatModel 的 Stream 方法未实现")
}

// BindTools 实现 model.ChatModel 接口。
// 筛选流程不使用结构化工具调用，这里仅保存工具信息以满足接口。
func (m *OllamaChatModel) BindTools(tools []*schema.ToolInfo) error {
	m.boundTools = tools
	return nil
}

// WithTools 满足 model.ToolCallingChatModel 接口
func (m *OllamaChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	if err := m.BindTools(tools); err != nil {
		return nil, err
	}
	return m, nil
}

// ListModels 查询Ollama已加载的模型列表 (GET /api/tags)
func (m *OllamaChatModel) ListModels(ctx context.Context) ([]string, error) {
	url := m.baseURL + "/api/tags"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}

	httpResp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrModelUnreachable, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: 状态 %s", types.ErrModelUnreachable, httpResp.Status)
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMalformedModelResponse, err)
	}

	names := make([]string, 0, len(tags.Models))
	for _, mdl := range tags.Models {
		names = append(names, mdl.Name)
	}
	return names, nil
}

// Ping 探测Ollama运行时是否可达，并确认目标模型是否已加载
func (m *OllamaChatModel) Ping(ctx context.Context) (bool, error) {
	names, err := m.ListModels(ctx)
	if err != nil {
		return false, err
	}
	for _, name := range names {
		if name == m.modelName || strings.HasPrefix(name, m.modelName+":") {
			return true, nil
		}
	}
	// 运行时可达但模型未加载
	return false, nil
}

var _ model.ChatModel = (*OllamaChatModel)(nil)
var _ model.ToolCallingChatModel = (*OllamaChatModel)(nil)
