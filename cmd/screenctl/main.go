package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"resume-screener-go/internal/config"
	"resume-screener-go/internal/llm"
	appLogger "resume-screener-go/internal/logger"
	"resume-screener-go/internal/parser"
	"resume-screener-go/internal/screening"
	"resume-screener-go/internal/types"
)

// screenctl 离线筛选工具：读取本地候选人JSON和JD文本，直接打分输出排名。
// 不依赖MinIO/Redis/RabbitMQ，适合调试评分逻辑和提示词。
func main() {
	var configPath string
	var candidateDir string
	var jdPath string
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径")
	pflag.StringVarP(&candidateDir, "dir", "d", "", "候选人JSON文件目录")
	pflag.StringVarP(&jdPath, "jd", "j", "", "岗位描述文本文件")
	pflag.Parse()

	if candidateDir == "" || jdPath == "" {
		pflag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	appLogger.Init(appLogger.Config{
		Level:      cfg.Logger.Level,
		Format:     "pretty",
		TimeFormat: cfg.Logger.TimeFormat,
	})

	jdBytes, err := os.ReadFile(jdPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取JD文件失败: %v\n", err)
		os.Exit(1)
	}

	candidates, err := loadCandidates(candidateDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载候选人失败: %v\n", err)
		os.Exit(1)
	}
	if len(candidates) == 0 {
		fmt.Fprintf(os.Stderr, "目录 %s 中没有候选人JSON文件\n", candidateDir)
		os.Exit(1)
	}
	fmt.Printf("已加载 %d 个候选人\n", len(candidates))

	ollamaTimeout := time.Duration(cfg.Ollama.TimeoutSeconds) * time.Second
	jdModel := llm.NewOllamaChatModel(cfg.Ollama.BaseURL, cfg.GetModelForTask("jd_parser"),
		llm.WithTemperature(cfg.JDParser.Temperature),
		llm.WithTimeout(ollamaTimeout),
		llm.WithJSONFormat(true),
	)
	agentModel := llm.NewOllamaChatModel(cfg.Ollama.BaseURL, cfg.GetModelForTask("screening_agent"),
		llm.WithTemperature(cfg.Ollama.Temperature),
		llm.WithTimeout(ollamaTimeout),
		llm.WithJSONFormat(true),
	)

	ctx := context.Background()

	jdParser := parser.NewJDParser(jdModel,
		parser.WithJDTimeout(config.GetDuration(cfg.JDParser.ParseTimeout, 60*time.Second)),
	)
	req, err := jdParser.Parse(ctx, string(jdBytes))
	if err != nil {
		fmt.Fprintf(os.Stderr, "解析JD失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("岗位级别: %s，要求技能: %s\n", req.RoleLevel, strings.Join(req.RequiredSkills, ", "))

	orchestrator := screening.NewOrchestrator(agentModel,
		screening.WithWeights(screening.Weights{
			Technical: cfg.Screening.TechnicalWeight,
			Career:    cfg.Screening.CareerWeight,
			Fit:       cfg.Screening.FitWeight,
		}),
		screening.WithParallelAgents(cfg.Screening.ParallelAgents),
	)

	start := time.Now()
	result, err := orchestrator.Screen(ctx, candidates, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "筛选失败: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n%-5s %-24s %-8s %-16s %-8s\n", "排名", "姓名", "总分", "等级", "置信度")
	fmt.Println(strings.Repeat("-", 66))
	for _, c := range result.Candidates {
		if c.Status == screening.StatusFailed {
			fmt.Printf("%-5d %-24s %-8s %-16s %s\n", c.Rank, c.Name, "-", "failed", c.Error)
			continue
		}
		fmt.Printf("%-5d %-24s %-8.2f %-16s %-8.1f\n", c.Rank, c.Name, c.TotalScore, c.Tier, c.Confidence)
	}
	fmt.Printf("\n共筛选 %d 人（失败 %d），耗时 %.2fs\n", result.TotalScreened, result.FailedCount, time.Since(start).Seconds())
}

// loadCandidates 读取目录中所有候选人JSON文件
func loadCandidates(dir string) ([]*types.Candidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var candidates []*types.Candidate
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("读取 %s 失败: %w", entry.Name(), err)
		}
		var candidate types.Candidate
		if err := json.Unmarshal(data, &candidate); err != nil {
			return nil, fmt.Errorf("解析 %s 失败: %w", entry.Name(), err)
		}
		if candidate.ID == "" {
			candidate.ID = strings.TrimSuffix(entry.Name(), ".json")
		}
		candidates = append(candidates, &candidate)
	}
	return candidates, nil
}
