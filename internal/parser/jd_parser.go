package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"resume-screener-go/internal/logger"
	"resume-screener-go/internal/types"
)

// JDParser 将岗位描述文本解析为结构化的岗位需求
type JDParser struct {
	llmModel       model.ChatModel
	promptTemplate string
	timeout        time.Duration
	logger         zerolog.Logger
}

// JDParserOption JD解析器的配置选项
type JDParserOption func(*JDParser)

// WithJDPromptTemplate 设置自定义提示词模板，模板中以 %s 占位JD文本
func WithJDPromptTemplate(template string) JDParserOption {
	return func(p *JDParser) {
		p.promptTemplate = template
	}
}

// WithJDTimeout 设置单次解析的超时
func WithJDTimeout(d time.Duration) JDParserOption {
	return func(p *JDParser) {
		p.timeout = d
	}
}

// NewJDParser 创建一个新的JD解析器实例
func NewJDParser(llmModel model.ChatModel, options ...JDParserOption) *JDParser {
	p := &JDParser{
		llmModel: llmModel,
		timeout:  60 * time.Second,
		logger:   logger.Logger.With().Str("component", "jd_parser").Logger(),
	}

	p.generatePromptTemplate()

	for _, opt := range options {
		opt(p)
	}

	return p
}

func (p *JDParser) generatePromptTemplate() {
	p.promptTemplate = `Analyze this job description and extract key information in JSON format.

Job Description:
%s

Extract the following information:
1. Required technical skills (list)
2. Preferred/nice-to-have skills (list)
3. Minimum years of experience required (number, if not mentioned use 0)
4. Education requirements (string)
5. Role level (entry/mid/senior/lead)
6. Key responsibilities (list)
7. Company culture indicators (list of keywords like "startup", "collaborative", "fast-paced", etc.)
8. Domain/industry (string)
9. Must-have qualifications (list)
10. Red flags to watch for (list - like "frequent job hopping", "lack of relevant experience")

Return ONLY a valid JSON object with these keys:
{
  "required_skills": [],
  "preferred_skills": [],
  "min_experience_years": 0,
  "education_requirements": "",
  "role_level": "",
  "key_responsibilities": [],
  "culture_indicators": [],
  "domain": "",
  "must_have_qualifications": [],
  "risk_factors_to_watch": []
}

Do not include any explanation, only return the JSON object.`
}

// Parse 解析JD文本。模型输出无法解析时退回最小兜底结构，而不是让整个筛选失败。
func (p *JDParser) Parse(ctx context.Context, jdText string) (*types.JobRequirements, error) {
	if p.llmModel == nil {
		return nil, fmt.Errorf("JDParser: llmModel is not initialized")
	}
	if strings.TrimSpace(jdText) == "" {
		return nil, fmt.Errorf("JDParser: job description text is empty")
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	prompt := fmt.Sprintf(p.promptTemplate, jdText)
	messages := []*einoschema.Message{
		einoschema.UserMessage(prompt),
	}

	response, err := p.llmModel.Generate(callCtx, messages)
	if err != nil {
		return nil, fmt.Errorf("JDParser: LLM call failed: %w", err)
	}
	if response == nil || response.Content == "" {
		p.logger.Warn().Msg("JD解析收到空响应，使用兜底结构")
		return types.DefaultJobRequirements(), nil
	}

	jsonStr := ExtractJSONObject(response.Content)
	if jsonStr == "" {
		p.logger.Warn().Msg("JD解析响应中没有JSON对象，使用兜底结构")
		return types.DefaultJobRequirements(), nil
	}
	if !utf8.ValidString(jsonStr) {
		jsonStr = strings.ToValidUTF8(jsonStr, "")
	}

	var req types.JobRequirements
	if err := json.Unmarshal([]byte(jsonStr), &req); err != nil {
		fixed := SanitizeJSON(jsonStr)
		if jsonErr := json.Unmarshal([]byte(fixed), &req); jsonErr != nil {
			p.logger.Warn().Err(err).Msg("JD解析JSON反序列化失败，使用兜底结构")
			return types.DefaultJobRequirements(), nil
		}
	}

	if req.RoleLevel == "" {
		req.RoleLevel = "mid"
	}
	if req.RequiredSkills == nil {
		req.RequiredSkills = []string{}
	}

	return &req, nil
}
