package router

import (
	"context"
	"errors"
	"io"
	"mime/multipart"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"resume-screener-go/internal/api/handler"
	"resume-screener-go/internal/config"
	"resume-screener-go/internal/types"
)

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, cfg *config.Config,
	resumeHandler *handler.ResumeHandler, screeningHandler *handler.ScreeningHandler) {

	api := h.Group("/api/v1")

	// 异步上传：文件进入MinIO + 消息队列流水线
	api.POST("/resume/upload", func(c context.Context, ctx *app.RequestContext) {
		fileBytes, filename, ok := readUploadedFile(ctx, cfg)
		if !ok {
			return
		}

		sourceChannel := ctx.PostForm("source_channel")
		if sourceChannel == "" {
			sourceChannel = "web_upload"
		}

		resp, err := resumeHandler.HandleResumeUpload(c, fileBytes, filename, sourceChannel)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	// 同步解析：立即返回结构化候选人
	api.POST("/resume/parse", func(c context.Context, ctx *app.RequestContext) {
		fileBytes, filename, ok := readUploadedFile(ctx, cfg)
		if !ok {
			return
		}

		withAnalysis := ctx.PostForm("with_analysis") == "true"

		resp, err := resumeHandler.HandleResumeParse(c, fileBytes, filename, withAnalysis)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	// 纯文本提取，调试辅助
	api.POST("/resume/extract-text", func(c context.Context, ctx *app.RequestContext) {
		fileBytes, filename, ok := readUploadedFile(ctx, cfg)
		if !ok {
			return
		}

		text, err := resumeHandler.HandleExtractText(c, fileBytes, filename)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, utils.H{"filename": filename, "text": text, "length": len(text)})
	})

	// 对候选人库执行整轮筛选
	api.POST("/screening/run", func(c context.Context, ctx *app.RequestContext) {
		jdText := ctx.PostForm("job_description")
		if jdText == "" {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "缺少 job_description 参数"})
			return
		}

		result, err := screeningHandler.HandleScreeningRun(c, jdText)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, result)
	})

	// 内联解析一批简历后立即筛选
	api.POST("/screening/parse-and-screen", func(c context.Context, ctx *app.RequestContext) {
		jdText := ctx.PostForm("job_description")
		if jdText == "" {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "缺少 job_description 参数"})
			return
		}

		form, err := ctx.MultipartForm()
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "解析multipart表单失败"})
			return
		}

		fileHeaders := form.File["files"]
		if len(fileHeaders) == 0 {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "没有上传任何文件"})
			return
		}

		var files []handler.UploadedFile
		for _, fh := range fileHeaders {
			if fh.Size > cfg.Server.MaxFileSizeBytes {
				ctx.JSON(consts.StatusBadRequest, utils.H{
					"error": "文件 " + fh.Filename + " 超过大小限制",
				})
				return
			}
			data, err := readMultipartFile(fh)
			if err != nil {
				ctx.JSON(consts.StatusBadRequest, utils.H{"error": "读取文件 " + fh.Filename + " 失败"})
				return
			}
			files = append(files, handler.UploadedFile{Name: fh.Filename, Data: data})
		}

		resp, err := screeningHandler.HandleParseAndScreen(c, files, jdText)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	// 候选人库统计
	api.GET("/candidates/stats", func(c context.Context, ctx *app.RequestContext) {
		resp, err := resumeHandler.HandleCandidateStats(c)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	// 清空候选人库
	api.DELETE("/candidates", func(c context.Context, ctx *app.RequestContext) {
		deleted, err := resumeHandler.HandleClearCandidates(c)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, utils.H{"deleted": deleted, "status": "cleared"})
	})

	// Ollama模型列表
	api.GET("/models", func(c context.Context, ctx *app.RequestContext) {
		models, err := screeningHandler.HandleListModels(c)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, utils.H{"models": models})
	})

	// Ollama运行时探测
	api.GET("/ollama/health", func(c context.Context, ctx *app.RequestContext) {
		resp := screeningHandler.HandleOllamaHealth(c)
		status := consts.StatusOK
		if !resp.Reachable {
			status = consts.StatusServiceUnavailable
		}
		ctx.JSON(status, resp)
	})

	// 服务健康检查
	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	// 前端静态页面
	if cfg.Server.StaticDir != "" {
		h.StaticFile("/", cfg.Server.StaticDir+"/index.html")
		h.Static("/static", cfg.Server.StaticDir)
	}
}

// readUploadedFile 读取multipart表单中的file字段，并在读取内容前先做大小检查。
// 校验失败时直接写入400响应并返回 ok=false。
func readUploadedFile(ctx *app.RequestContext, cfg *config.Config) ([]byte, string, bool) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "文件未找到"})
		return nil, "", false
	}

	// 超限文件在打开前拒绝，不触碰任何模型或存储
	if fileHeader.Size > cfg.Server.MaxFileSizeBytes {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "文件超过大小限制"})
		return nil, "", false
	}

	data, err := readMultipartFile(fileHeader)
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "读取文件失败"})
		return nil, "", false
	}
	return data, fileHeader.Filename, true
}

// readMultipartFile 打开并读取multipart文件内容
func readMultipartFile(fh *multipart.FileHeader) ([]byte, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

// writeError 按错误类型映射HTTP状态码：客户端输入错误400，存储降级503，其余500
func writeError(ctx *app.RequestContext, err error) {
	status := consts.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrFileTooLarge) || errors.Is(err, types.ErrUnsupportedFileType):
		status = consts.StatusBadRequest
	case errors.Is(err, types.ErrStorageUnavailable):
		status = consts.StatusServiceUnavailable
	}
	ctx.JSON(status, utils.H{"error": err.Error()})
}
