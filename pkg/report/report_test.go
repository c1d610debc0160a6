package report

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"neurovision/pkg/registry"
)

func TestRender_ByteExact(t *testing.T) {
	at := time.Date(2026, time.March, 7, 14, 5, 9, 0, time.UTC)
	r := New(registry.Lookup("cerebellum"), at)

	want := "\n" +
		"NEUROVISION INSIGHTS - MEDICAL ANALYSIS REPORT\n" +
		"==============================================\n" +
		"Date: 3/7/2026\n" +
		"Time: 2:05:09 PM\n" +
		"\n" +
		"FINDINGS\n" +
		"--------\n" +
		"Deformity Type: Medulloblastoma\n" +
		"Tumor Classification: Malignant (pediatric)\n" +
		"Severity: High\n" +
		"\n" +
		"SYMPTOMS\n" +
		"--------\n" +
		"- Balance problems\n" +
		"- Coordination difficulties\n" +
		"- Headaches\n" +
		"- Nausea\n" +
		"\n" +
		"RECOMMENDATIONS\n" +
		"--------------\n" +
		"- Immediate neurosurgical intervention\n" +
		"- Spinal tap\n" +
		"- Radiation therapy\n" +
		"\n" +
		"==============================================\n" +
		"This is an AI-generated report and should be reviewed by a qualified medical professional.\n" +
		"Neurovision Insights is not a substitute for professional medical advice, diagnosis, or treatment.\n"

	if diff := cmp.Diff(want, string(Render(r, at))); diff != "" {
		t.Errorf("Render mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_MorningTime(t *testing.T) {
	at := time.Date(2026, time.December, 31, 0, 7, 3, 0, time.UTC)
	out := string(Render(New(registry.Lookup("default"), at), at))
	assert.Contains(t, out, "Date: 12/31/2026\n")
	assert.Contains(t, out, "Time: 12:07:03 AM\n")
	assert.Contains(t, out, "Deformity Type: Unspecified brain mass\n")
}

func TestNew_CopiesLists(t *testing.T) {
	rec := registry.Lookup("amygdala")
	r := New(rec, time.Unix(0, 0))
	rec.Symptoms[0] = "changed"
	assert.Equal(t, "Emotional changes", r.Symptoms[0])
	assert.Equal(t, "amygdala", r.RegionID)
}

func TestFilename(t *testing.T) {
	at := time.UnixMilli(1760000000123)
	assert.Equal(t, "neurovision-report-1760000000123.txt", Filename(at))
}

func TestToneOf(t *testing.T) {
	assert.Equal(t, ToneMalignant, ToneOf("Malignant (Grade IV)"))
	assert.Equal(t, ToneBenign, ToneOf("Benign but invasive"))
	assert.Equal(t, ToneIndeterminate, ToneOf("Low-grade (Grade II)"))
	assert.Equal(t, ToneIndeterminate, ToneOf("Pending histopathological analysis"))
}
