package mapper

import (
	"rule-chatbot-be/internal/dto"
	"rule-chatbot-be/pkg/conversation"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// ResponseToWire returns the JSON body for a reply: the search result as is,
// or {"type":"text","message":...}.
func (m *ChatMapper) ResponseToWire(resp conversation.Response) interface{} {
	if resp.Structured() {
		return resp.Search
	}
	return dto.TextResponse{Type: "text", Message: resp.Text}
}
