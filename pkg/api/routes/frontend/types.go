package frontend

import (
	"context"
	"time"

	"neurovision/pkg/models"
	"neurovision/pkg/registry"
	"neurovision/pkg/report"
	"neurovision/pkg/resolver"
	"neurovision/pkg/session"
)

// Handlers serves the public /v1 API.
type Handlers struct {
	Sessions *session.Manager
	Registry *registry.Registry
	Resolver *resolver.Resolver

	// WaitTimeout bounds ?wait=true requests.
	WaitTimeout time.Duration
	// BaseContext is cancelled when the server stops. Nil never cancels.
	BaseContext context.Context
}

type RegionSummary struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	ConditionName  string          `json:"conditionName"`
	Classification string          `json:"classification"`
	Severity       models.Severity `json:"severity"`
	Tone           report.Tone     `json:"tone"`
}

type RegionDetail struct {
	Name string      `json:"name"`
	Tone report.Tone `json:"tone"`
	models.FindingRecord
}

type ResolveRequest struct {
	Text   string `json:"text"`
	Region string `json:"region"`
}

type ResolveResponse struct {
	Intent resolver.Intent `json:"intent"`
	Text   string          `json:"text"`
}

type QuickQuestion struct {
	Text   string          `json:"text"`
	Intent resolver.Intent `json:"intent"`
}

type MessageRequest struct {
	Text string `json:"text"`
}

type MessageResponse struct {
	User      models.ConversationEntry `json:"user"`
	Assistant models.ConversationEntry `json:"assistant"`
}

type TranscriptResponse struct {
	Pending    bool                       `json:"pending"`
	Transcript []models.ConversationEntry `json:"transcript"`
}

type SelectRegionRequest struct {
	Region string `json:"region"`
}

type ReportResponse struct {
	Tone report.Tone `json:"tone"`
	models.Report
}
