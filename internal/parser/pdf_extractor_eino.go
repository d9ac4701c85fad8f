package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
	"github.com/rs/zerolog"

	"resume-screener-go/internal/logger"
	"resume-screener-go/internal/types"
)

// 提取后文本清理用的正则
var (
	reControlChars   = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f-\x9f]`)
	reSpacesAndTabs  = regexp.MustCompile(`[ \t]+`)
	reManyNewlines   = regexp.MustCompile(`\n{3,}`)
	reSpaceBeforeEOL = regexp.MustCompile(`[ \t]+\n`)
)

// EinoPDFTextExtractor 使用 Eino PDF Parser 提取简历文本
type EinoPDFTextExtractor struct {
	parser *pdf.PDFParser
	logger zerolog.Logger
}

// EinoPDFOption PDF提取器的配置选项
type EinoPDFOption func(*EinoPDFTextExtractor)

// WithEinoLogger 配置自定义日志记录器
func WithEinoLogger(l zerolog.Logger) EinoPDFOption {
	return func(e *EinoPDFTextExtractor) {
		e.logger = l
	}
}

// NewEinoPDFTextExtractor 初始化 Eino PDF 文本提取器
// 默认配置为不按页面分割，以获取整个文档的连续文本
func NewEinoPDFTextExtractor(ctx context.Context, options ...EinoPDFOption) (*EinoPDFTextExtractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: false, // 需要整个PDF的文本作为单个字符串
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Eino PDF parser: %w", err)
	}

	extractor := &EinoPDFTextExtractor{
		parser: p,
		logger: logger.Logger.With().Str("component", "pdf_extractor").Logger(),
	}

	for _, option := range options {
		option(extractor)
	}

	return extractor, nil
}

// CleanExtractedText 规范化PDF提取出的原始文本：
// 去除控制字符、折叠行内空白、去掉行尾空白、把3个以上连续换行压成2个
func CleanExtractedText(text string) string {
	if text == "" {
		return ""
	}
	cleaned := strings.ReplaceAll(text, "\r\n", "\n")
	cleaned = strings.ReplaceAll(cleaned, "\r", "\n")
	cleaned = reControlChars.ReplaceAllString(cleaned, "")
	cleaned = reSpacesAndTabs.ReplaceAllString(cleaned, " ")
	cleaned = reSpaceBeforeEOL.ReplaceAllString(cleaned, "\n")
	cleaned = reManyNewlines.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}

// ExtractFullTextFromPDFFile 从给定的PDF文件路径中提取清理后的纯文本内容和元数据
func (e *EinoPDFTextExtractor) ExtractFullTextFromPDFFile(ctx context.Context, filePath string) (string, map[string]interface{}, error) {
	startTime := time.Now()

	file, err := os.Open(filePath)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open PDF file %s: %w", filePath, err)
	}
	defer file.Close()

	if fileInfo, err := file.Stat(); err == nil {
		e.logger.Debug().
			Str("file", filePath).
			Float64("size_mb", float64(fileInfo.Size())/1024/1024).
			Msg("开始处理PDF文件")
	}

	extraMeta := map[string]interface{}{
		"source_file_path": filePath,
		"extraction_time":  time.Now().Format(time.RFC3339),
	}

	text, metadata, err := e.ExtractTextFromReader(ctx, file, filePath, extraMeta)
	if err != nil {
		e.logger.Warn().Err(err).Str("file", filePath).
			Float64("elapsed_s", time.Since(startTime).Seconds()).
			Msg("PDF处理失败")
		return "", nil, err
	}

	e.logger.Debug().
		Int("chars", len(text)).
		Float64("elapsed_s", time.Since(startTime).Seconds()).
		Msg("PDF处理完成")
	return text, metadata, nil
}

// ExtractTextFromReader 从 io.Reader 中提取清理后的文本
// 返回: 提取的文本内容 (string), 解析器元数据 (map[string]interface{}), 错误 (error)
func (e *EinoPDFTextExtractor) ExtractTextFromReader(ctx context.Context, reader io.Reader, uri string, options interface{}) (string, map[string]interface{}, error) {
	var extraMeta map[string]interface{}
	if options != nil {
		if meta, ok := options.(map[string]interface{}); ok {
			extraMeta = meta
		} else {
			extraMeta = map[string]interface{}{
				"original_options": options,
			}
		}
	} else {
		extraMeta = make(map[string]interface{})
	}

	startTime := time.Now()

	// 单个简历的解析不应超过30秒
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	docs, err := e.parser.Parse(ctx, reader,
		einoParser.WithURI(uri),
		einoParser.WithExtraMeta(extraMeta),
	)

	duration := time.Since(startTime)
	if err != nil {
		return "", extraMeta, fmt.Errorf("%w: eino PDF parser failed for URI %s: %v", types.ErrUnreadablePDF, uri, err)
	}

	if len(docs) == 0 {
		return "", extraMeta, fmt.Errorf("%w: eino PDF parser returned no documents for URI %s", types.ErrUnreadablePDF, uri)
	}

	// 合并所有文档的内容（以防万一返回了多个）
	var sb strings.Builder
	for i, doc := range docs {
		sb.WriteString(doc.Content)
		if i < len(docs)-1 {
			sb.WriteString("\n\n")
		}
	}

	fullContent := CleanExtractedText(sb.String())
	if fullContent == "" {
		return "", extraMeta, fmt.Errorf("%w: no text content extracted from URI %s", types.ErrUnreadablePDF, uri)
	}

	var finalMetadata map[string]interface{}
	if docs[0].MetaData != nil {
		finalMetadata = docs[0].MetaData
	} else {
		finalMetadata = make(map[string]interface{})
	}
	for k, v := range extraMeta {
		finalMetadata[k] = v
	}
	finalMetadata["processing_duration_ms"] = duration.Milliseconds()
	finalMetadata["document_count"] = len(docs)
	finalMetadata["text_length"] = len(fullContent)

	e.logger.Debug().
		Str("uri", uri).
		Int("chars", len(fullContent)).
		Float64("elapsed_s", duration.Seconds()).
		Msg("PDF提取完成")
	return fullContent, finalMetadata, nil
}

// ExtractTextFromBytes 从字节数组提取文本内容
func (e *EinoPDFTextExtractor) ExtractTextFromBytes(ctx context.Context, data []byte, uri string, options interface{}) (string, map[string]interface{}, error) {
	return e.ExtractTextFromReader(ctx, bytes.NewReader(data), uri, options)
}
