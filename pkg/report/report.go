// Package report builds analysis reports from finding records and renders the
// downloadable plain-text export.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"neurovision/pkg/models"
)

const (
	dateLayout = "1/2/2006"
	timeLayout = "3:04:05 PM"
	rule       = "=============================================="
)

// New builds a report for rec generated at at.
func New(rec models.FindingRecord, at time.Time) models.Report {
	rec = rec.Clone()
	return models.Report{
		RegionID:        rec.RegionID,
		ConditionName:   rec.ConditionName,
		Classification:  rec.Classification,
		Severity:        rec.Severity,
		Symptoms:        rec.Symptoms,
		Recommendations: rec.Recommendations,
		GeneratedAt:     at,
	}
}

// Render produces the text export of r stamped with at. The layout is
// user-facing downloadable output and must stay byte-for-byte stable.
func Render(r models.Report, at time.Time) []byte {
	var b bytes.Buffer
	b.WriteString("\n")
	b.WriteString("NEUROVISION INSIGHTS - MEDICAL ANALYSIS REPORT\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Date: %s\n", at.Format(dateLayout))
	fmt.Fprintf(&b, "Time: %s\n", at.Format(timeLayout))
	b.WriteString("\n")
	b.WriteString("FINDINGS\n")
	b.WriteString("--------\n")
	fmt.Fprintf(&b, "Deformity Type: %s\n", r.ConditionName)
	fmt.Fprintf(&b, "Tumor Classification: %s\n", r.Classification)
	fmt.Fprintf(&b, "Severity: %s\n", r.Severity)
	b.WriteString("\n")
	b.WriteString("SYMPTOMS\n")
	b.WriteString("--------\n")
	b.WriteString(bulletList(r.Symptoms))
	b.WriteString("\n\n")
	b.WriteString("RECOMMENDATIONS\n")
	b.WriteString("--------------\n")
	b.WriteString(bulletList(r.Recommendations))
	b.WriteString("\n\n")
	b.WriteString(rule + "\n")
	b.WriteString("This is an AI-generated report and should be reviewed by a qualified medical professional.\n")
	b.WriteString("Neurovision Insights is not a substitute for professional medical advice, diagnosis, or treatment.\n")
	return b.Bytes()
}

func bulletList(items []string) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, "- "+it)
	}
	return strings.Join(lines, "\n")
}

// Filename returns the download name for an export created at at.
func Filename(at time.Time) string {
	return fmt.Sprintf("neurovision-report-%d.txt", at.UnixMilli())
}

// Tone is the badge colour hint for a classification.
type Tone string

const (
	ToneMalignant     Tone = "malignant"
	ToneBenign        Tone = "benign"
	ToneIndeterminate Tone = "indeterminate"
)

// ToneOf derives the badge tone from a classification label.
func ToneOf(classification string) Tone {
	switch {
	case strings.Contains(classification, "Malignant"):
		return ToneMalignant
	case strings.Contains(classification, "Benign"):
		return ToneBenign
	default:
		return ToneIndeterminate
	}
}
