package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EkarshaSumajK/Knowledge-Base-Search/app/bootstrap"
	"github.com/EkarshaSumajK/Knowledge-Base-Search/internal/config"
	"github.com/EkarshaSumajK/Knowledge-Base-Search/internal/logger"
)

// DocumentController 文档上传控制器
type DocumentController struct {
	BaseController
}

// POST /api/documents
// multipart/form-data，字段名files，可一次上传多个文件；
// 逐个处理，单个文件失败不阻塞其余文件
func (c *DocumentController) Upload() {
	app := bootstrap.GetApp()
	if app == nil {
		c.JSONError(http.StatusServiceUnavailable, "service not initialized")
		return
	}

	maxSize := config.GetAppConfig().FileUpload.MaxSize
	if err := c.Ctx.Request.ParseMultipartForm(maxSize); err != nil {
		c.JSONError(http.StatusBadRequest, "解析上传文件失败")
		return
	}

	files := c.Ctx.Request.MultipartForm.File["files"]
	if len(files) == 0 {
		c.JSONError(http.StatusBadRequest, "No files provided")
		return
	}

	uploadID := uuid.NewString()
	logger.Info("📄 processing upload batch",
		zap.String("upload_id", uploadID), zap.Int("files", len(files)))

	results := app.Retrieval.UploadFiles(c.Ctx.Request.Context(), files)

	failed := 0
	for _, result := range results {
		if result.Error != "" {
			failed++
		}
	}
	logger.Info("upload batch finished",
		zap.String("upload_id", uploadID),
		zap.Int("succeeded", len(results)-failed),
		zap.Int("failed", failed))

	c.JSON(http.StatusOK, map[string]interface{}{
		"success":   failed < len(results),
		"documents": results,
	})
}
