package controllers

import (
	"net/http"

	apperrors "github.com/EkarshaSumajK/Knowledge-Base-Search/internal/errors"

	"github.com/EkarshaSumajK/Knowledge-Base-Search/app/bootstrap"
)

// VectorStoreController 向量存储查询/管理控制器
type VectorStoreController struct {
	BaseController
}

// GET /api/vector-store
// 返回 {documentCount, documents[]}
func (c *VectorStoreController) Stats() {
	app := bootstrap.GetApp()
	if app == nil {
		c.JSONError(http.StatusServiceUnavailable, "service not initialized")
		return
	}

	stats, err := app.Retrieval.Store().Stats(c.Ctx.Request.Context())
	if err != nil {
		appErr := apperrors.GetAppError(err)
		c.JSONError(appErr.HTTPCode, appErr.Message)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// DELETE /api/vector-store?filename=X
// 带filename删除该文件的全部chunk并返回删除数量；
// 不带filename清空整个存储。删除失败必须上报，不允许静默丢数据
func (c *VectorStoreController) Delete() {
	app := bootstrap.GetApp()
	if app == nil {
		c.JSONError(http.StatusServiceUnavailable, "service not initialized")
		return
	}

	ctx := c.Ctx.Request.Context()
	filename := c.GetString("filename")

	if filename != "" {
		deleted, err := app.Retrieval.Store().DeleteByFilename(ctx, filename)
		if err != nil {
			appErr := apperrors.GetAppError(err)
			c.JSONError(appErr.HTTPCode, appErr.Message)
			return
		}
		c.JSON(http.StatusOK, map[string]interface{}{
			"success":      true,
			"deletedCount": deleted,
		})
		return
	}

	if err := app.Retrieval.Store().Clear(ctx); err != nil {
		appErr := apperrors.GetAppError(err)
		c.JSONError(appErr.HTTPCode, appErr.Message)
		return
	}
	c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "vector store cleared",
	})
}
