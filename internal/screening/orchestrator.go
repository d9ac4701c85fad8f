package screening

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"resume-screener-go/internal/logger"
	"resume-screener-go/internal/types"
)

// 候选人评分状态
const (
	StatusScored = "scored"
	StatusFailed = "failed"
)

// Orchestrator 对一批候选人执行完整的筛选流程：
// 事实抽取 → 三个Agent评估 → 加权聚合 → 排名
type Orchestrator struct {
	skillAgent      Agent
	experienceAgent Agent
	fitAgent        Agent
	weights         Weights
	parallelAgents  bool
	now             func() time.Time
	logger          zerolog.Logger
}

// OrchestratorOption 筛选编排器的配置选项
type OrchestratorOption func(*Orchestrator)

// WithWeights 覆盖默认聚合权重
func WithWeights(w Weights) OrchestratorOption {
	return func(o *Orchestrator) {
		o.weights = w
	}
}

// WithParallelAgents 控制三个Agent是否并行执行
func WithParallelAgents(parallel bool) OrchestratorOption {
	return func(o *Orchestrator) {
		o.parallelAgents = parallel
	}
}

// WithAgents 替换默认Agent实现，测试时注入桩
func WithAgents(skill, experience, fit Agent) OrchestratorOption {
	return func(o *Orchestrator) {
		o.skillAgent = skill
		o.experienceAgent = experience
		o.fitAgent = fit
	}
}

// WithClock 替换时间源，年限计算的测试需要固定时间
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// NewOrchestrator 创建筛选编排器，三个Agent默认共用同一个LLM客户端
func NewOrchestrator(llmModel model.ChatModel, options ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		skillAgent:      NewSkillAgent(llmModel),
		experienceAgent: NewExperienceAgent(llmModel),
		fitAgent:        NewFitAgent(llmModel),
		weights:         DefaultWeights(),
		parallelAgents:  true,
		now:             time.Now,
		logger:          logger.Logger.With().Str("component", "screening_orchestrator").Logger(),
	}

	for _, opt := range options {
		opt(o)
	}

	return o
}

// Screen 对全部候选人评分并排名。
// 单个候选人评分失败（模型不可达等）不会中断整批筛选：
// 该候选人以 failed 状态进入结果，其余候选人正常评分和排名。
func (o *Orchestrator) Screen(ctx context.Context, candidates []*types.Candidate, req *types.JobRequirements) (*types.ScreeningResult, error) {
	if req == nil {
		return nil, fmt.Errorf("screening: job requirements is nil")
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("screening: no candidates to screen")
	}

	startTime := o.now()
	runID := uuid.NewString()

	o.logger.Info().
		Str("run_id", runID).
		Int("candidates", len(candidates)).
		Msg("开始筛选")

	var scored []types.RankedCandidate
	var failed []types.RankedCandidate

	for _, candidate := range candidates {
		ranked, err := o.scoreCandidate(ctx, candidate, req)
		if err != nil {
			o.logger.Warn().Err(err).
				Str("candidate", candidate.DisplayName()).
				Msg("候选人评分失败")
			failed = append(failed, types.RankedCandidate{
				CandidateID: candidate.ID,
				Name:        candidate.DisplayName(),
				Status:      StatusFailed,
				Error:       err.Error(),
			})
			continue
		}
		scored = append(scored, *ranked)
	}

	if len(scored) == 0 && len(failed) > 0 {
		return nil, fmt.Errorf("screening: all %d candidates failed, first error: %s", len(failed), failed[0].Error)
	}

	// 百分位在整组成功评分的候选人内计算
	allScores := make([]float64, len(scored))
	for i, c := range scored {
		allScores[i] = c.TotalScore
	}
	for i := range scored {
		scored[i].PercentileRank = PercentileRank(allScores, scored[i].TotalScore)
	}

	// 总分非递增排序，失败的候选人排在最后
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].TotalScore > scored[j].TotalScore
	})

	results := append(scored, failed...)
	for i := range results {
		results[i].Rank = i + 1
	}

	elapsed := o.now().Sub(startTime).Seconds()
	o.logger.Info().
		Str("run_id", runID).
		Int("scored", len(scored)).
		Int("failed", len(failed)).
		Float64("elapsed_s", elapsed).
		Msg("筛选完成")

	return &types.ScreeningResult{
		RunID:          runID,
		Requirements:   req,
		Candidates:     results,
		TotalScreened:  len(results),
		FailedCount:    len(failed),
		ElapsedSeconds: round2(elapsed),
	}, nil
}

// scoreCandidate 对单个候选人跑完三个Agent并聚合
func (o *Orchestrator) scoreCandidate(ctx context.Context, candidate *types.Candidate, req *types.JobRequirements) (*types.RankedCandidate, error) {
	facts := GetFactualBaseline(candidate, req, o.now())

	agents := []Agent{o.skillAgent, o.experienceAgent, o.fitAgent}
	results := make([]*types.AgentResult, len(agents))

	if o.parallelAgents {
		var wg sync.WaitGroup
		errChan := make(chan error, len(agents))
		for i, agent := range agents {
			wg.Add(1)
			go func(idx int, ag Agent) {
				defer wg.Done()
				result, err := ag.Score(ctx, candidate, req, facts)
				if err != nil {
					errChan <- fmt.Errorf("%s agent: %w", ag.Name(), err)
					return
				}
				results[idx] = result
			}(i, agent)
		}
		wg.Wait()
		close(errChan)
		if err := <-errChan; err != nil {
			return nil, err
		}
	} else {
		for i, agent := range agents {
			result, err := agent.Score(ctx, candidate, req, facts)
			if err != nil {
				return nil, fmt.Errorf("%s agent: %w", agent.Name(), err)
			}
			results[i] = result
		}
	}

	skillResult, expResult, fitResult := results[0], results[1], results[2]

	total, breakdown, weighted := CombineScores(skillResult.Score, expResult.Score, fitResult.Score, o.weights)

	return &types.RankedCandidate{
		CandidateID:    candidate.ID,
		Name:           candidate.DisplayName(),
		TotalScore:     total,
		Tier:           ScoreTier(total),
		Confidence:     ConfidenceScore(skillResult.Score, expResult.Score, fitResult.Score),
		Breakdown:      breakdown,
		WeightedScores: weighted,
		AgentResults:   []types.AgentResult{*skillResult, *expResult, *fitResult},
		Status:         StatusScored,
	}, nil
}
