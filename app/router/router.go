package router

import (
	"github.com/beego/beego/v2/server/web"

	"github.com/EkarshaSumajK/Knowledge-Base-Search/app/controllers"
)

// Init registers all routes. Must be called after bootstrap.Init.
func Init() {
	web.Router("/", &controllers.RootController{}, "get:Index")
	web.Router("/health", &controllers.HealthController{}, "get:Health")
	web.Router("/metrics", &controllers.MetricsController{}, "get:Metrics")

	// 文档上传
	web.Router("/api/documents", &controllers.DocumentController{}, "post:Upload")

	// 向量存储查询与管理
	web.Router("/api/vector-store", &controllers.VectorStoreController{}, "get:Stats;delete:Delete")

	// RAG聊天
	web.Router("/api/chat", &controllers.ChatController{}, "post:Chat")
}
