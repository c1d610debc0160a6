package models

import "time"

// Report is a generated analysis report for the region selected in a session.
type Report struct {
	RegionID        string    `json:"regionId"`
	ConditionName   string    `json:"conditionName"`
	Classification  string    `json:"classification"`
	Severity        Severity  `json:"severity"`
	Symptoms        []string  `json:"symptoms"`
	Recommendations []string  `json:"recommendations"`
	GeneratedAt     time.Time `json:"generatedAt"`
}

// ArchivedReport is a report persisted in the archive store.
type ArchivedReport struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionId"`
	Report    Report `json:"report"`
}

// ScanImage describes an uploaded scan. Raw bytes never leave the session.
type ScanImage struct {
	Filename    string    `json:"filename,omitempty"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	SHA256      string    `json:"sha256"`
	UploadedAt  time.Time `json:"uploadedAt"`
}
