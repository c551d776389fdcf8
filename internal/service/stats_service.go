package service

import (
	"rule-chatbot-be/internal/dto"
	"rule-chatbot-be/pkg/usage"
)

const defaultTopMatches = 10

type IStatsService interface {
	GetStats(limit int) *dto.StatsResponse
}

type statsService struct {
	tracker *usage.Tracker
}

func NewStatsService(tracker *usage.Tracker) IStatsService {
	return &statsService{tracker: tracker}
}

func (s *statsService) GetStats(limit int) *dto.StatsResponse {
	if limit <= 0 {
		limit = defaultTopMatches
	}
	snap := s.tracker.Snapshot(limit)

	top := make([]dto.MatchCount, 0, len(snap.TopMatches))
	for _, m := range snap.TopMatches {
		top = append(top, dto.MatchCount{Outcome: m.Outcome, MatchedID: m.MatchedID, Count: m.Count})
	}
	return &dto.StatsResponse{
		Since:             snap.Since,
		TotalInteractions: snap.Total,
		ByOutcome:         snap.ByOutcome,
		TopMatches:        top,
		KnowledgeReloads:  snap.Reloads,
	}
}
