package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"neurovision/pkg/registry"
)

func TestClassify_Order(t *testing.T) {
	tests := []struct {
		text string
		want Intent
	}{
		{"What does the SCAN show?", IntentShow},
		{"can I see it", IntentShow},
		{"show me the recommendations", IntentShow},
		{"show me the scan and recommend treatment", IntentShow},
		{"what are the results", IntentAnalysis},
		{"Analysis please, and symptoms", IntentAnalysis},
		{"what are the symptoms?", IntentSymptoms},
		{"side effects and treatment", IntentSymptoms},
		{"what do you recommend", IntentRecommendations},
		{"treatment options", IntentRecommendations},
		{"hello", IntentDefault},
		{"", IntentDefault},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.text))
		})
	}
}

func TestResolve_SymptomsExample(t *testing.T) {
	got := Resolve("what are the symptoms?", "cerebellum")
	assert.Equal(t, "Common symptoms include: Balance problems, Coordination difficulties, Headaches, Nausea.", got)
}

func TestResolve_ShowIntentFields(t *testing.T) {
	for _, id := range registry.Regions() {
		rec := registry.Lookup(id)
		got := Resolve("Please SCAN this", id)
		assert.Contains(t, got, rec.ConditionName)
		assert.Contains(t, got, rec.Classification)
		assert.Contains(t, got, RegionName(id))
	}
}

func TestResolve_KeywordPriority(t *testing.T) {
	got := Resolve("show me the scan and recommend treatment", "frontal_lobe")
	assert.Equal(t, "The scan shows an abnormality in the frontal lobe consistent with Glioblastoma (Malignant (Grade IV)).", got)
	assert.NotContains(t, got, "Recommended next steps")
}

func TestResolve_Recommendations(t *testing.T) {
	got := Resolve("What treatment do you recommend?", "thalamus")
	assert.Equal(t, "Recommended next steps: Stereotactic biopsy, Radiation therapy, Palliative care consultation.", got)
}

func TestResolve_AnalysisIncludesSeverity(t *testing.T) {
	got := Resolve("analysis", "brain_stem")
	assert.Contains(t, got, "brain stem")
	assert.Contains(t, got, "Very high")
}

func TestResolve_NeverEmpty(t *testing.T) {
	inputs := []string{"", " ", "show", "symptoms", "recommend", "result", "random words"}
	regions := append(registry.Regions(), "", "default", "unregistered_region")
	for _, in := range inputs {
		for _, id := range regions {
			assert.NotEmpty(t, Resolve(in, id), "input %q region %q", in, id)
		}
	}
}

func TestResolve_UnknownRegionUsesDefault(t *testing.T) {
	got := Resolve("scan", "unregistered_region")
	assert.Equal(t, "The scan shows an abnormality in the brain consistent with Unspecified brain mass (Pending histopathological analysis).", got)

	for _, id := range []string{"", "default", "unregistered_region"} {
		assert.NotContains(t, Resolve("hello", id), "in the default", id)
		assert.Contains(t, Resolve("analysis", id), "Analysis of the brain indicates", id)
	}
	assert.Equal(t, "brain", RegionName(""))
	assert.Equal(t, "brain", RegionName(registry.DefaultRegionID))
	assert.Equal(t, "brain stem", RegionName("brain_stem"))
}

func TestQuickQuestions(t *testing.T) {
	qs := QuickQuestions()
	assert.Equal(t, []string{
		"What does this image show?",
		"Analyze the highlighted area",
		"Why is this region significant?",
		"Is this pattern normal?",
	}, qs)
	assert.Equal(t, IntentShow, Classify(qs[0]))
	assert.Equal(t, IntentDefault, Classify(qs[1]))

	qs[0] = "changed"
	assert.Equal(t, "What does this image show?", QuickQuestions()[0])
}

func TestResolveIntent(t *testing.T) {
	intent, text := New(nil).ResolveIntent("Any side effects?", "amygdala")
	assert.Equal(t, IntentSymptoms, intent)
	assert.Equal(t, "Common symptoms include: Emotional changes, Memory problems, Seizures, Anxiety.", text)
}
