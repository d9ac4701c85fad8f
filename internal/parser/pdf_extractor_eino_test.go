package parser

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-screener-go/internal/types"
)

func TestNewEinoPDFTextExtractor(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	extractor, err := NewEinoPDFTextExtractor(ctx)
	require.NoError(t, err, "创建PDF提取器不应返回错误")
	require.NotNil(t, extractor, "创建的PDF提取器不应为nil")
	require.NotNil(t, extractor.parser, "PDF提取器内部的parser不应为nil")

	// 测试带自定义logger的创建
	customLogger := zerolog.New(io.Discard).With().Str("component", "test").Logger()
	extractorWithLogger, err := NewEinoPDFTextExtractor(ctx, WithEinoLogger(customLogger))
	require.NoError(t, err, "创建带自定义logger的PDF提取器不应返回错误")
	require.NotNil(t, extractorWithLogger, "提取器不应为nil")
}

func TestCleanExtractedText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "空字符串",
			input:    "",
			expected: "",
		},
		{
			name:     "CRLF换行统一为LF",
			input:    "line1\r\nline2\rline3",
			expected: "line1\nline2\nline3",
		},
		{
			name:     "去除控制字符",
			input:    "hello\x00\x08world",
			expected: "helloworld",
		},
		{
			name:     "折叠行内连续空白",
			input:    "name:    John\tDoe",
			expected: "name: John Doe",
		},
		{
			name:     "去掉行尾空白",
			input:    "line1   \nline2",
			expected: "line1\nline2",
		},
		{
			name:     "压缩3个以上连续换行",
			input:    "para1\n\n\n\n\npara2",
			expected: "para1\n\npara2",
		},
		{
			name:     "去掉首尾空白",
			input:    "\n\n  content  \n\n",
			expected: "content",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanExtractedText(tt.input), "清理结果与预期不符")
		})
	}
}

// TestExtractTextFromInvalidBytes 非法PDF内容应返回不可读错误
func TestExtractTextFromInvalidBytes(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	extractor, err := NewEinoPDFTextExtractor(ctx)
	require.NoError(t, err, "创建PDF提取器不应返回错误")

	invalidPDF := []byte("%PDF-1.5\nthis is not a real pdf body\n")
	_, _, err = extractor.ExtractTextFromBytes(ctx, invalidPDF, "broken.pdf", map[string]interface{}{
		"source_channel": "test",
	})
	require.Error(t, err, "非法PDF内容应返回错误")
	assert.True(t, errors.Is(err, types.ErrUnreadablePDF), "错误应可识别为不可读PDF")
}

// TestExtractFromNonExistentFile 不存在的文件应返回打开失败错误
func TestExtractFromNonExistentFile(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	extractor, err := NewEinoPDFTextExtractor(ctx)
	require.NoError(t, err, "创建PDF提取器不应返回错误")

	_, _, err = extractor.ExtractFullTextFromPDFFile(ctx, "/path/to/missing/resume.pdf")
	require.Error(t, err, "从不存在的文件提取应该返回错误")
	assert.Contains(t, err.Error(), "failed to open PDF file", "错误消息应该指示文件打开失败")
}
