package dto

import "time"

// GetResponseRequest is the form (or JSON) body of POST /api/get_response.
type GetResponseRequest struct {
	Question string `json:"question" form:"question" validate:"required,max=2000"`
}

// TextResponse is the plain-text reply shape.
type TextResponse struct {
	Type    string `json:"type"` // always "text"
	Message string `json:"message"`
}

// SystemMessage is pushed to websocket clients outside a question/answer turn.
type SystemMessage struct {
	Type    string `json:"type"` // always "system"
	Message string `json:"message"`
}

// WsQuestion is a client frame on the chat websocket.
type WsQuestion struct {
	Question string `json:"question" validate:"required,max=2000"`
}

type HealthResponse struct {
	Status          string    `json:"status"`
	Rules           int       `json:"rules"`
	Facts           int       `json:"facts"`
	Sessions        int       `json:"sessions"`
	Connections     int       `json:"connections"` // websocket clients on this instance
	KnowledgeLoaded time.Time `json:"knowledge_loaded_at"`
}

type MatchCount struct {
	Outcome   string `json:"outcome"`
	MatchedID string `json:"matched_id"`
	Count     int64  `json:"count"`
}

type StatsResponse struct {
	Since             time.Time        `json:"since"`
	TotalInteractions int64            `json:"total_interactions"`
	ByOutcome         map[string]int64 `json:"by_outcome"`
	TopMatches        []MatchCount     `json:"top_matches"`
	KnowledgeReloads  int64            `json:"knowledge_reloads"`
}
