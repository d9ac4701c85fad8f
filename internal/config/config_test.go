package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadConfigFromFile 验证配置文件能否被正确加载
func TestLoadConfigFromFile(t *testing.T) {
	yamlContent := `
ollama:
  base_url: "http://ollama-host:11434"
  model: "qwen2.5:14b"
  temperature: 0.1
  task_models:
    jd_parser: "qwen2.5:7b"
server:
  address: ":9000"
  max_file_size_bytes: 5242880
  allowed_extensions:
    - ".pdf"
screening:
  technical_weight: 0.5
  career_weight: 0.3
  fit_weight: 0.2
  parallel_agents: true
`
	tmpDir, err := os.MkdirTemp("", "config-test")
	require.NoError(t, err, "无法创建临时目录")
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "config.yaml")
	err = os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err, "无法写入临时配置文件")

	config, err := LoadConfigFromFileOnly(configPath)
	require.NoError(t, err, "加载合法配置不应返回错误")
	require.NotNil(t, config, "配置对象不应为 nil")

	assert.Equal(t, "http://ollama-host:11434", config.Ollama.BaseURL, "Ollama.BaseURL 与预期不符")
	assert.Equal(t, "qwen2.5:14b", config.Ollama.Model, "Ollama.Model 与预期不符")
	assert.Equal(t, ":9000", config.Server.Address, "Server.Address 与预期不符")
	assert.Equal(t, int64(5242880), config.Server.MaxFileSizeBytes, "MaxFileSizeBytes 与预期不符")
	assert.Equal(t, 0.5, config.Screening.TechnicalWeight, "TechnicalWeight 与预期不符")
	assert.True(t, config.Screening.ParallelAgents, "ParallelAgents 应为 true")
}

// TestLoadConfigAppliesDefaults 验证缺省字段会被默认值填充
func TestLoadConfigAppliesDefaults(t *testing.T) {
	minimalYAML := `
ollama:
  base_url: "http://localhost:11434"
`
	tmpDir, err := os.MkdirTemp("", "config-test-defaults")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "config.yaml")
	err = os.WriteFile(configPath, []byte(minimalYAML), 0644)
	require.NoError(t, err)

	config, err := LoadConfigFromFileOnly(configPath)
	require.NoError(t, err)

	assert.Equal(t, ":8000", config.Server.Address, "未配置时服务地址应使用默认值")
	assert.Equal(t, int64(10*1024*1024), config.Server.MaxFileSizeBytes, "未配置时文件大小上限应为10MB")
	assert.Equal(t, []string{".pdf"}, config.Server.AllowedExtensions, "未配置时仅允许PDF")
	assert.Equal(t, 120, config.Ollama.TimeoutSeconds, "未配置时Ollama超时应为120秒")
	// 权重全为0时应回退到默认权重，避免总分恒为0
	assert.Equal(t, 0.40, config.Screening.TechnicalWeight, "技能权重默认值不符")
	assert.Equal(t, 0.35, config.Screening.CareerWeight, "经验权重默认值不符")
	assert.Equal(t, 0.25, config.Screening.FitWeight, "契合度权重默认值不符")
}

// TestApplyEnvOverrides 验证环境变量优先于配置文件
func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "http://env-override:11434")
	t.Setenv("OLLAMA_MODEL", "llama3:8b")
	t.Setenv("SERVER_ADDRESS", ":18000")

	config := createDefaultConfig()
	applyEnvOverrides(config)

	assert.Equal(t, "http://env-override:11434", config.Ollama.BaseURL, "环境变量应覆盖Ollama地址")
	assert.Equal(t, "llama3:8b", config.Ollama.Model, "环境变量应覆盖默认模型")
	assert.Equal(t, ":18000", config.Server.Address, "环境变量应覆盖服务地址")
}

// TestGetModelForTask 验证任务专用模型的查找逻辑
func TestGetModelForTask(t *testing.T) {
	config := createDefaultConfig()
	config.Ollama.Model = "qwen2.5:7b"
	config.Ollama.TaskModels = map[string]string{
		"analyzer": "qwen2.5:3b",
	}

	assert.Equal(t, "qwen2.5:3b", config.GetModelForTask("analyzer"), "应返回任务专用模型")
	assert.Equal(t, "qwen2.5:7b", config.GetModelForTask("jd_parser"), "未配置专用模型时应回退到默认模型")
	assert.Equal(t, "qwen2.5:7b", config.GetModelForTask("unknown_task"), "未知任务应回退到默认模型")
}

// TestGetDuration 验证时长字符串解析
func TestGetDuration(t *testing.T) {
	assert.Equal(t, 90*time.Second, GetDuration("90s", time.Minute), "合法时长应被解析")
	assert.Equal(t, time.Minute, GetDuration("", time.Minute), "空字符串应返回默认值")
	assert.Equal(t, time.Minute, GetDuration("not-a-duration", time.Minute), "非法字符串应返回默认值")
}

// TestLoadConfigMissingFile 验证配置文件不存在时的行为
func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfigFromFileOnly("/nonexistent/path/config.yaml")
	require.Error(t, err, "配置文件不存在时应返回错误")
}
