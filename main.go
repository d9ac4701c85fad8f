package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	"github.com/spf13/pflag"

	"resume-screener-go/internal/api/handler"
	"resume-screener-go/internal/api/router"
	"resume-screener-go/internal/config"
	"resume-screener-go/internal/llm"
	appLogger "resume-screener-go/internal/logger"
	"resume-screener-go/internal/parser"
	"resume-screener-go/internal/screening"
	"resume-screener-go/internal/storage"
)

func main() {
	var configPath string
	var createConfig bool
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径")
	pflag.BoolVar(&createConfig, "init-config", false, "生成示例配置文件后退出")
	pflag.Parse()

	if createConfig {
		if err := config.CreateSampleConfig("config.yaml"); err != nil {
			log.Fatalf("生成示例配置失败: %v", err)
		}
		return
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	appLogger.Init(appLogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})
	glog.SetLogger(hertzadapter.From(appLogger.Logger))
	glog.Info("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	glog.Info("存储服务初始化成功")

	// 各任务使用独立的模型配置，共享同一个Ollama实例
	ollamaTimeout := time.Duration(cfg.Ollama.TimeoutSeconds) * time.Second
	structurerModel := llm.NewOllamaChatModel(cfg.Ollama.BaseURL, cfg.GetModelForTask("resume_structurer"),
		llm.WithTemperature(cfg.LLMParser.Temperature),
		llm.WithMaxTokens(cfg.LLMParser.MaxTokens),
		llm.WithTimeout(ollamaTimeout),
		llm.WithJSONFormat(true),
	)
	jdModel := llm.NewOllamaChatModel(cfg.Ollama.BaseURL, cfg.GetModelForTask("jd_parser"),
		llm.WithTemperature(cfg.JDParser.Temperature),
		llm.WithMaxTokens(cfg.JDParser.MaxTokens),
		llm.WithTimeout(ollamaTimeout),
		llm.WithJSONFormat(true),
	)
	agentModel := llm.NewOllamaChatModel(cfg.Ollama.BaseURL, cfg.GetModelForTask("screening_agent"),
		llm.WithTemperature(cfg.Ollama.Temperature),
		llm.WithTimeout(ollamaTimeout),
		llm.WithJSONFormat(true),
	)
	glog.Info("Ollama模型客户端初始化成功")

	pdfExtractor, err := parser.NewEinoPDFTextExtractor(ctx, parser.WithEinoLogger(appLogger.Logger))
	if err != nil {
		glog.Fatalf("创建PDF提取器失败: %v", err)
	}
	glog.Info("PDF提取器初始化成功")

	structurer := parser.NewResumeStructurer(structurerModel,
		parser.WithStructurerMaxRetries(cfg.LLMParser.MaxRetries),
		parser.WithStructurerRetryWait(time.Duration(cfg.LLMParser.RetryWaitSeconds)*time.Second),
		parser.WithStructurerTimeout(config.GetDuration(cfg.LLMParser.ExtractionTimeout, 120*time.Second)),
	)
	jdParser := parser.NewJDParser(jdModel,
		parser.WithJDTimeout(config.GetDuration(cfg.JDParser.ParseTimeout, 60*time.Second)),
	)

	var analyzer *parser.ResumeAnalyzer
	if cfg.Analyzer.Enabled {
		analyzerModel := llm.NewOllamaChatModel(cfg.Ollama.BaseURL, cfg.GetModelForTask("analyzer"),
			llm.WithTimeout(ollamaTimeout),
			llm.WithJSONFormat(true),
		)
		analyzer = parser.NewResumeAnalyzer(analyzerModel,
			parser.WithAnalyzerWeights(cfg.Analyzer.Weights),
		)
		glog.Info("简历质量分析器已启用")
	}

	orchestrator := screening.NewOrchestrator(agentModel,
		screening.WithWeights(screening.Weights{
			Technical: cfg.Screening.TechnicalWeight,
			Career:    cfg.Screening.CareerWeight,
			Fit:       cfg.Screening.FitWeight,
		}),
		screening.WithParallelAgents(cfg.Screening.ParallelAgents),
	)

	resumeHandler := handler.NewResumeHandler(cfg, storageManager, pdfExtractor, structurer, analyzer)
	screeningHandler := handler.NewScreeningHandler(cfg, storageManager, jdParser, orchestrator, pdfExtractor, structurer, agentModel)
	glog.Info("业务处理器初始化成功")

	// 两阶段消费者：原始简历→文本、文本→结构化候选人
	if storageManager.RabbitMQ != nil {
		go func() {
			if err := resumeHandler.StartResumeUploadConsumer(ctx); err != nil {
				glog.Fatalf("启动简历上传消费者失败: %v", err)
			}
			if err := resumeHandler.StartLLMParsingConsumer(ctx); err != nil {
				glog.Fatalf("启动LLM结构化消费者失败: %v", err)
			}
			glog.Info("所有消费者已启动")
		}()
	} else {
		glog.Warn("RabbitMQ不可用，异步解析流水线未启动")
	}

	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		server.WithMaxRequestBodySize(int(cfg.Server.MaxFileSizeBytes)*2),
	)
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		glog.CtxInfof(c, "Request: %s %s", string(ctx.Method()), string(ctx.Path()))
		ctx.Next(c)
		glog.CtxInfof(c, "Response: status %d", ctx.Response.StatusCode())
	})

	router.RegisterRoutes(h, cfg, resumeHandler, screeningHandler)
	glog.Info("HTTP路由注册成功")

	glog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address)
	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("服务器关闭失败: %v", err)
	}
	glog.Info("优雅退出完成")
}
