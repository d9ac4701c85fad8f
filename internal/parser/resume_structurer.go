package parser

import (
	"context"
	"encoding/json"
	"errors"
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

// strictJSONSuffix 解析失败重试时追加的强约束提示
const strictJSONSuffix = "\n\nRETURN ONLY VALID JSON. Start with { and end with }. No markdown, no code blocks."

// structurerSystemMessage 结构化抽取的系统提示
const structurerSystemMessage = "You are a professional resume parser. Extract information accurately and return valid JSON only."

// ResumeStructurer 将清理后的简历文本交给LLM，抽取为结构化的候选人数据
type ResumeStructurer struct {
	llmModel       model.ChatModel
	promptTemplate string
	maxRetries     int
	retryWait      time.Duration
	timeout        time.Duration
	logger         zerolog.Logger
}

// ResumeStructurerOption 结构化器的配置选项
type ResumeStructurerOption func(*ResumeStructurer)

// WithStructurerPromptTemplate 设置自定义提示词模板，模板中以 %s 占位简历文本
func WithStructurerPromptTemplate(template string) ResumeStructurerOption {
	return func(s *ResumeStructurer) {
		s.promptTemplate = template
	}
}

// WithStructurerMaxRetries 设置解析失败的最大重试次数
func WithStructurerMaxRetries(n int) ResumeStructurerOption {
	return func(s *ResumeStructurer) {
		s.maxRetries = n
	}
}

// WithStructurerRetryWait 设置重试等待间隔
func WithStructurerRetryWait(d time.Duration) ResumeStructurerOption {
	return func(s *ResumeStructurer) {
		s.retryWait = d
	}
}

// WithStructurerTimeout 设置单次抽取的超时
func WithStructurerTimeout(d time.Duration) ResumeStructurerOption {
	return func(s *ResumeStructurer) {
		s.timeout = d
	}
}

// NewResumeStructurer 创建一个新的结构化器实例
func NewResumeStructurer(llmModel model.ChatModel, options ...ResumeStructurerOption) *ResumeStructurer {
	s := &ResumeStructurer{
		llmModel:   llmModel,
		maxRetries: 1,
		retryWait:  time.Second,
		timeout:    120 * time.Second,
		logger:     logger.Logger.With().Str("component", "resume_structurer").Logger(),
	}

	s.generatePromptTemplate()

	for _, opt := range options {
		opt(s)
	}

	return s
}

func (s *ResumeStructurer) generatePromptTemplate() {
	s.promptTemplate = `You are an expert resume parser. Extract ALL information from the following resume text and return it as valid JSON.

Resume Text:
%s

IMPORTANT: Extract EVERY piece of information. Do not skip any sections.

Extract the following information and return ONLY a valid JSON object with this exact structure:

{
    "personal_info": {
        "name": "Full name",
        "email": "email@example.com",
        "phone": "phone number",
        "location": "city, state/country",
        "linkedin": "LinkedIn URL if present",
        "github": "GitHub URL if present",
        "website": "Personal website if present"
    },
    "summary": "Professional summary or objective",
    "experience": [
        {
            "company": "Company name",
            "position": "Job title",
            "location": "Location",
            "start_date": "Start date",
            "end_date": "End date or 'Present'",
            "responsibilities": ["Responsibility 1", "Responsibility 2"]
        }
    ],
    "education": [
        {
            "institution": "School/University name",
            "degree": "Degree type and major",
            "location": "Location",
            "start_date": "Start date",
            "end_date": "End date or 'Present'",
            "gpa": "GPA if present"
        }
    ],
    "skills": {
        "technical": ["skill1", "skill2"],
        "soft_skills": ["skill1", "skill2"],
        "tools": ["tool1", "tool2"]
    },
    "certifications": [
        {
            "name": "Certification name",
            "issuer": "Issuing organization",
            "date": "Date obtained"
        }
    ],
    "projects": [
        {
            "name": "Project name",
            "description": "Brief description",
            "technologies": ["tech1", "tech2"],
            "link": "Project link if available"
        }
    ],
    "languages": ["Language1", "Language2"],
    "achievements": ["Achievement 1", "Achievement 2"]
}

Important rules:
1. Return ONLY valid JSON, no additional text or explanations
2. Use null for missing information
3. Keep arrays empty [] if section not found
4. Extract dates SEPARATELY - do NOT combine start and end dates into one field
5. Don't invent or assume information not in the resume
6. If a section is completely missing, include it with null or empty values
7. Extract ALL skills mentioned anywhere in the resume
8. Extract ALL work experience, internships, and professional roles
9. Include project descriptions in the "description" field
10. Look for LinkedIn, GitHub usernames in the header section

Return the JSON now:`
}

// Structure 对简历文本执行结构化抽取，解析失败时带强约束提示重试
func (s *ResumeStructurer) Structure(ctx context.Context, resumeText string) (*types.Candidate, error) {
	if s.llmModel == nil {
		return nil, fmt.Errorf("ResumeStructurer: llmModel is not initialized")
	}
	if strings.TrimSpace(resumeText) == "" {
		return nil, fmt.Errorf("ResumeStructurer: resume text is empty")
	}

	prompt := fmt.Sprintf(s.promptTemplate, resumeText)

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			// 重试时追加强约束提示，并稍作等待
			prompt += strictJSONSuffix
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.retryWait):
			}
			s.logger.Debug().Int("attempt", attempt+1).Msg("简历结构化重试")
		}

		candidate, err := s.structureOnce(ctx, prompt)
		if err == nil {
			return candidate, nil
		}
		lastErr = err

		// 模型不可达时重试没有意义，直接返回
		if errors.Is(err, types.ErrModelUnreachable) {
			return nil, err
		}
	}

	return nil, lastErr
}

func (s *ResumeStructurer) structureOnce(ctx context.Context, prompt string) (*types.Candidate, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	messages := []*einoschema.Message{
		einoschema.SystemMessage(structurerSystemMessage),
		einoschema.UserMessage(prompt),
	}

	response, err := s.llmModel.Generate(callCtx, messages)
	if err != nil {
		return nil, fmt.Errorf("ResumeStructurer: LLM call failed: %w", err)
	}
	if response == nil || response.Content == "" {
		return nil, fmt.Errorf("%w: empty response", types.ErrMalformedModelResponse)
	}

	jsonStr := ExtractJSONObject(response.Content)
	if jsonStr == "" {
		return nil, fmt.Errorf("%w: no JSON object in response", types.ErrMalformedModelResponse)
	}
	if !utf8.ValidString(jsonStr) {
		jsonStr = strings.ToValidUTF8(jsonStr, "")
	}

	var candidate types.Candidate
	if err := json.Unmarshal([]byte(jsonStr), &candidate); err != nil {
		// 解析失败时尝试修复字符串内部未转义的引号再试一次
		fixed := SanitizeJSON(jsonStr)
		if jsonErr := json.Unmarshal([]byte(fixed), &candidate); jsonErr != nil {
			return nil, fmt.Errorf("%w: unmarshal failed: %v", types.ErrMalformedModelResponse, err)
		}
	}

	if err := validateCandidate(&candidate); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMalformedModelResponse, err)
	}

	return &candidate, nil
}

// validateCandidate 结构化结果的最低要求：至少有姓名、技能或经历之一
func validateCandidate(c *types.Candidate) error {
	if c.PersonalInfo.Name == "" &&
		len(c.Experience) == 0 &&
		len(c.Skills.Technical) == 0 &&
		len(c.Education) == 0 {
		return fmt.Errorf("extracted candidate has no usable content")
	}
	return nil
}
