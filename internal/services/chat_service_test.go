package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLastUserMessage(t *testing.T) {
	messages := []ChatMessage{
		{Role: "user", Content: "first question"},
		{Role: "assistant", Content: "answer"},
		{Role: "user", Content: "  follow-up question  "},
	}
	assert.Equal(t, "follow-up question", lastUserMessage(messages))

	// 没有用户消息时返回空
	assert.Equal(t, "", lastUserMessage([]ChatMessage{{Role: "system", Content: "x"}}))
	assert.Equal(t, "", lastUserMessage(nil))
}

func TestRagSystemPromptEmbedsContext(t *testing.T) {
	store := &memoryStore{searchResults: makeSearchResults()}
	service := newTestRetrievalService(store)

	retrieved := service.Retrieve(context.Background(), "query")
	require.NotEmpty(t, retrieved.Context)

	prompt := strings.Replace(ragSystemPromptTemplate, "%s", retrieved.Context, 1)
	assert.Contains(t, prompt, "KNOWLEDGE BASE CONTEXT:")
	assert.Contains(t, prompt, "first chunk")
	assert.Contains(t, prompt, "I don't have specific information about that in my current knowledge base.")
}

func TestStreamChatRejectsEmptyMessages(t *testing.T) {
	service := &ChatService{}

	_, _, err := service.StreamChat(context.Background(), &ChatRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestChatServiceNotReadyWithoutClient(t *testing.T) {
	service := &ChatService{}
	assert.False(t, service.Ready())
}
