// Package resolver turns free-text chat input into a scripted assistant answer
// about the finding for the currently selected region.
package resolver

import (
	"fmt"
	"strings"

	"neurovision/pkg/models"
	"neurovision/pkg/registry"
)

// Intent is the classified purpose of a chat message.
type Intent string

const (
	IntentShow            Intent = "show"
	IntentAnalysis        Intent = "analysis"
	IntentSymptoms        Intent = "symptoms"
	IntentRecommendations Intent = "recommendations"
	IntentDefault         Intent = "default"
)

type rule struct {
	intent   Intent
	keywords []string
}

// evaluated in order, first match wins
var rules = []rule{
	{intent: IntentShow, keywords: []string{"show", "see", "scan"}},
	{intent: IntentAnalysis, keywords: []string{"analysis", "result"}},
	{intent: IntentSymptoms, keywords: []string{"symptoms", "effects"}},
	{intent: IntentRecommendations, keywords: []string{"recommend", "treatment"}},
}

// Classify returns the intent of text using case-insensitive substring matching.
func Classify(text string) Intent {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.intent
			}
		}
	}
	return IntentDefault
}

// shortcut prompts offered next to the chat input
var quickQuestions = []string{
	"What does this image show?",
	"Analyze the highlighted area",
	"Why is this region significant?",
	"Is this pattern normal?",
}

// QuickQuestions returns the suggested chat prompts in display order.
func QuickQuestions() []string {
	return append([]string(nil), quickQuestions...)
}

// Lookuper is the part of the region registry the resolver needs.
type Lookuper interface {
	Lookup(regionID string) models.FindingRecord
}

// Resolver renders assistant answers from a region registry.
type Resolver struct {
	reg Lookuper
}

// New returns a Resolver over reg. A nil reg uses the default registry.
func New(reg Lookuper) *Resolver {
	if reg == nil {
		reg = registry.Default()
	}
	return &Resolver{reg: reg}
}

var std = New(nil)

// Resolve answers inputText for regionID using the default registry.
func Resolve(inputText, regionID string) string {
	return std.Resolve(inputText, regionID)
}

// Resolve answers inputText about the finding for regionID. It always returns
// a non-empty sentence.
func (r *Resolver) Resolve(inputText, regionID string) string {
	_, text := r.ResolveIntent(inputText, regionID)
	return text
}

// ResolveIntent is Resolve that also reports the matched intent.
func (r *Resolver) ResolveIntent(inputText, regionID string) (Intent, string) {
	rec := r.reg.Lookup(regionID)
	intent := Classify(inputText)
	return intent, render(intent, rec)
}

func render(intent Intent, rec models.FindingRecord) string {
	region := RegionName(rec.RegionID)
	switch intent {
	case IntentShow:
		return fmt.Sprintf("The scan shows an abnormality in the %s consistent with %s (%s).",
			region, rec.ConditionName, rec.Classification)
	case IntentAnalysis:
		return fmt.Sprintf("Analysis of the %s indicates %s, classified as %s. Severity: %s.",
			region, rec.ConditionName, rec.Classification, rec.Severity)
	case IntentSymptoms:
		return fmt.Sprintf("Common symptoms include: %s.", strings.Join(rec.Symptoms, ", "))
	case IntentRecommendations:
		return fmt.Sprintf("Recommended next steps: %s.", strings.Join(rec.Recommendations, ", "))
	default:
		return fmt.Sprintf("The highlighted area in the %s suggests %s. Ask me what the scan shows, the analysis results, the symptoms or the recommended treatment.",
			region, rec.ConditionName)
	}
}

// defaultRegionName stands in for the fallback record in sentences.
const defaultRegionName = "brain"

// RegionName renders a region identifier for display.
func RegionName(regionID string) string {
	if regionID == "" || regionID == registry.DefaultRegionID {
		return defaultRegionName
	}
	return strings.ReplaceAll(regionID, "_", " ")
}
