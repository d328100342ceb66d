package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/EkarshaSumajK/Knowledge-Base-Search/internal/config"
	"github.com/EkarshaSumajK/Knowledge-Base-Search/internal/logger"
)

// ragSystemPromptTemplate RAG模式的系统提示词：上下文块原样嵌入，
// 要求仅基于知识库作答，查不到时明确告知
const ragSystemPromptTemplate = `You are an expert AI assistant with access to a comprehensive knowledge base. Your goal is to provide clear, accurate, and naturally flowing responses that synthesize information from the available sources.

KNOWLEDGE BASE CONTEXT:
%s

RESPONSE GUIDELINES:
- Write in a conversational yet professional tone; avoid mentioning "documents", "chunks", or "sources" in the main response body.
- Start with a clear, direct answer, then provide comprehensive explanations with relevant details.
- Use bullet points or numbered lists when presenting multiple items, and markdown formatting for readability.
- Only use information from the provided knowledge base context. If the context doesn't contain relevant information, clearly state: "I don't have specific information about that in my current knowledge base."
- Don't make up or infer information beyond what's provided. Maintain factual accuracy above all else.`

// genericSystemPrompt 未启用检索或检索无结果时的通用提示词
const genericSystemPrompt = `You are a helpful AI assistant. Provide clear, detailed, and well-structured responses. Use a conversational yet professional tone. Format your answers with proper paragraphs, bullet points where appropriate, and markdown for readability. Be thorough and informative while remaining concise and focused on the user's question.`

// ChatMessage 对话消息
type ChatMessage struct {
	Role    string `json:"role"` // user, assistant, system
	Content string `json:"content"`
}

// ChatRequest 聊天请求
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
	Model    string        `json:"model,omitempty"`
	UseRAG   bool          `json:"useRAG"`
}

// ChatService RAG聊天服务：组装提示词并转发语言模型的流式输出
type ChatService struct {
	client    *openai.Client
	config    *config.AIConfig
	retrieval *RetrievalService
	logger    *zap.Logger
}

// NewChatService 创建聊天服务
func NewChatService(retrieval *RetrievalService) *ChatService {
	cfg := &config.GetAppConfig().AI

	var client *openai.Client
	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		client = openai.NewClient(cfg.OpenAIAPIKey)
	}

	return &ChatService{
		client:    client,
		config:    cfg,
		retrieval: retrieval,
		logger:    logger.GetLogger(),
	}
}

// Ready 检查语言模型客户端是否可用
func (s *ChatService) Ready() bool {
	return s.client != nil
}

// StreamChat 执行一轮聊天：启用检索时先取上下文，再发起流式补全。
// 返回的stream由调用方负责Close；sources为去重后的来源列表
func (s *ChatService) StreamChat(ctx context.Context, req *ChatRequest) (*openai.ChatCompletionStream, []Source, error) {
	if s.client == nil {
		return nil, nil, errors.New("chat model not configured")
	}
	if len(req.Messages) == 0 {
		return nil, nil, errors.New("messages cannot be empty")
	}

	// 取最后一条用户消息作为检索查询
	query := lastUserMessage(req.Messages)

	systemPrompt := genericSystemPrompt
	var sources []Source
	if req.UseRAG && query != "" {
		retrieved := s.retrieval.Retrieve(ctx, query)
		if retrieved.Context != "" {
			systemPrompt = fmt.Sprintf(ragSystemPromptTemplate, retrieved.Context)
			sources = retrieved.Sources
		}
	}

	model := req.Model
	if model == "" {
		model = s.config.ChatModel
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	stream, err := s.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   s.config.MaxTokens,
		Temperature: float32(s.config.Temperature),
		Stream:      true,
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("chat stream started",
		zap.String("model", model),
		zap.Bool("use_rag", req.UseRAG),
		zap.Int("sources", len(sources)))
	return stream, sources, nil
}

// lastUserMessage 返回最后一条用户消息的内容
func lastUserMessage(messages []ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return strings.TrimSpace(messages[i].Content)
		}
	}
	return ""
}
