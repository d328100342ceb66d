package main

import (
	"log"
	"strconv"

	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"

	"github.com/EkarshaSumajK/Knowledge-Base-Search/app/bootstrap"
	"github.com/EkarshaSumajK/Knowledge-Base-Search/app/router"
	"github.com/EkarshaSumajK/Knowledge-Base-Search/internal/config"
	"github.com/EkarshaSumajK/Knowledge-Base-Search/internal/logger"
)

func main() {
	app, err := bootstrap.Init()
	if err != nil {
		log.Fatalf("failed to bootstrap application: %v", err)
	}
	defer app.Shutdown()

	router.Init()

	web.BConfig.AppName = "Knowledge Base Search"
	web.BConfig.CopyRequestBody = true
	if port, err := strconv.Atoi(config.AppConfig.Server.Port); err == nil {
		web.BConfig.Listen.HTTPPort = port
	}

	logger.Info("🚀 Starting Knowledge Base Search", zap.Int("port", web.BConfig.Listen.HTTPPort))
	web.Run()
}
