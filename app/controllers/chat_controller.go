package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/EkarshaSumajK/Knowledge-Base-Search/app/bootstrap"
	"github.com/EkarshaSumajK/Knowledge-Base-Search/internal/logger"
	"github.com/EkarshaSumajK/Knowledge-Base-Search/internal/services"
)

// ChatController RAG聊天控制器
type ChatController struct {
	BaseController
}

// streamEvent SSE下行事件
type streamEvent struct {
	Type    string            `json:"type"`
	Text    string            `json:"text,omitempty"`
	Sources []services.Source `json:"sources,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// POST /api/chat
// 请求体 {messages, model, useRAG}；以SSE流式返回模型输出，
// 模型token原样转发，检索来源在流末尾作为独立事件下发
func (c *ChatController) Chat() {
	app := bootstrap.GetApp()
	if app == nil {
		c.JSONError(http.StatusServiceUnavailable, "service not initialized")
		return
	}

	var req services.ChatRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, fmt.Sprintf("请求格式错误: %v", err))
		return
	}
	if len(req.Messages) == 0 {
		c.JSONError(http.StatusBadRequest, "messages cannot be empty")
		return
	}

	stream, sources, err := app.Chat.StreamChat(c.Ctx.Request.Context(), &req)
	if err != nil {
		logger.Error("chat stream failed to start", zap.Error(err))
		c.JSONError(http.StatusBadGateway, err.Error())
		return
	}
	defer stream.Close()

	w := c.Ctx.ResponseWriter
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, _ := w.ResponseWriter.(http.Flusher)

	writeEvent := func(event streamEvent) {
		payload, err := json.Marshal(event)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		if flusher != nil {
			flusher.Flush()
		}
	}

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Warn("chat stream interrupted", zap.Error(err))
			writeEvent(streamEvent{Type: "error", Error: err.Error()})
			break
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			writeEvent(streamEvent{Type: "text", Text: delta})
		}
	}

	if len(sources) > 0 {
		writeEvent(streamEvent{Type: "sources", Sources: sources})
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	if flusher != nil {
		flusher.Flush()
	}
}
