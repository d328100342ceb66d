package controllers

import (
	"net/http"

	"github.com/EkarshaSumajK/Knowledge-Base-Search/app/bootstrap"
)

// RootController 根路径控制器
type RootController struct {
	BaseController
}

// Index 服务信息
func (c *RootController) Index() {
	c.JSON(http.StatusOK, map[string]interface{}{
		"service": "knowledge-base-search",
		"status":  "running",
	})
}

// HealthController 健康检查控制器
type HealthController struct {
	BaseController
}

// Health 健康检查：报告向量存储与embedding服务是否就绪
func (c *HealthController) Health() {
	app := bootstrap.GetApp()
	if app == nil {
		c.JSONError(http.StatusServiceUnavailable, "service not initialized")
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"vector_store": app.Retrieval.Store().Ready(),
		"chat_model":   app.Chat.Ready(),
	})
}
