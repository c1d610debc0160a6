package admin

import (
	"context"

	"neurovision/internal/retention"
	"neurovision/pkg/models"
)

// Archive is the read side of the report archive.
type Archive interface {
	Ready() bool
	GetReport(id string) (models.ArchivedReport, error)
	ListReports(limit int) ([]models.ArchivedReport, error)
	Count() (int, error)
}

// Purger runs retention on demand.
type Purger interface {
	RunImmediate(ctx context.Context, dryRun bool) (retention.RunResult, error)
	LastRun() (retention.RunResult, bool)
}

// SessionCounter reports live sessions.
type SessionCounter interface {
	Len() int
}

// Handlers serves /admin. Archive and Purger are nil when the archive is
// disabled.
type Handlers struct {
	Archive  Archive
	Purger   Purger
	Sessions SessionCounter

	// BaseContext bounds purge jobs; cancelled when the server stops.
	BaseContext context.Context
}

type StatsResponse struct {
	Sessions         int                  `json:"sessions"`
	ArchiveEnabled   bool                 `json:"archiveEnabled"`
	ArchivedReports  int                  `json:"archivedReports"`
	LastRetentionRun *retention.RunResult `json:"lastRetentionRun,omitempty"`
}

type ReportsResponse struct {
	Reports []models.ArchivedReport `json:"reports"`
}
