package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurovision/pkg/models"
	"neurovision/pkg/registry"
	"neurovision/pkg/report"
	"neurovision/pkg/resolver"
	"neurovision/pkg/store"
	"neurovision/pkg/timeutil"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRegions_Table(t *testing.T) {
	out, err := run(t, "regions")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, len(registry.Regions())+1)
	assert.True(t, strings.HasPrefix(lines[1], "frontal_lobe"))
	assert.NotContains(t, out, "default ")
}

func TestRegions_DetailFormats(t *testing.T) {
	out, err := run(t, "regions", "cerebellum")
	require.NoError(t, err)
	assert.Contains(t, out, "Region:          cerebellum")

	out, err = run(t, "regions", "cerebellum", "-o", "json")
	require.NoError(t, err)
	var rec models.FindingRecord
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, registry.Lookup("cerebellum"), rec)

	out, err = run(t, "regions", "-o", "yaml")
	require.NoError(t, err)
	var recs []models.FindingRecord
	require.NoError(t, yaml.Unmarshal([]byte(out), &recs))
	assert.Len(t, recs, len(registry.Regions()))

	_, err = run(t, "regions", "spleen")
	assert.ErrorContains(t, err, "unknown region")
	_, err = run(t, "regions", "-o", "xml")
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	out, err := run(t, "resolve", "--region", "cerebellum", "what", "are", "the", "symptoms")
	require.NoError(t, err)
	assert.Equal(t, resolver.Resolve("what are the symptoms", "cerebellum")+"\n", out)

	out, err = run(t, "resolve", "--intent", "hello")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "[default] "))
}

func TestReport_RenderIsStable(t *testing.T) {
	at := "2025-03-04T14:05:06Z"
	when, _ := time.Parse(time.RFC3339, at)

	out, err := run(t, "report", "temporal_lobe", "--at", at)
	require.NoError(t, err)
	want := report.Render(report.New(registry.Lookup("temporal_lobe"), when), when)
	assert.Equal(t, string(want), out)

	dir := t.TempDir()
	out, err = run(t, "report", "temporal_lobe", "--at", at, "--out-dir", dir)
	require.NoError(t, err)
	path := filepath.Join(dir, report.Filename(when))
	assert.Equal(t, path+"\n", out)
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, body)

	_, err = run(t, "report", "temporal_lobe", "--at", "yesterday")
	assert.ErrorContains(t, err, "invalid --at")
}

func withMemArchive(t *testing.T) func(sessionID string, rec models.Report) models.ArchivedReport {
	t.Helper()
	fs := vfs.NewMem()
	prev := openArchive
	openArchive = func(string) (*store.Store, error) {
		return store.Open("archive", store.Options{FS: fs})
	}
	t.Cleanup(func() { openArchive = prev })

	return func(sessionID string, rec models.Report) models.ArchivedReport {
		st, err := openArchive("")
		require.NoError(t, err)
		defer st.Close()
		saved, err := st.SaveReport(sessionID, rec)
		require.NoError(t, err)
		return saved
	}
}

func TestArchive_ListShowPurge(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	restore := timeutil.SetClock(timeutil.Fixed(now))
	defer restore()

	save := withMemArchive(t)
	old := save("11111111-1111-1111-1111-111111111111", report.New(registry.Lookup("cerebellum"), now.Add(-60*24*time.Hour)))
	fresh := save("22222222-2222-2222-2222-222222222222", report.New(registry.Lookup("brainstem"), now.Add(-time.Hour)))

	out, err := run(t, "archive", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], fresh.ID))
	assert.Contains(t, lines[1], "1 hour ago")

	out, err = run(t, "archive", "show", old.ID)
	require.NoError(t, err)
	assert.Equal(t, string(report.Render(old.Report, old.Report.GeneratedAt)), out)

	_, err = run(t, "archive", "show", "00000000000000000001-missing")
	assert.Error(t, err)

	out, err = run(t, "archive", "purge", "--older-than", "720h", "--dry-run")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "would delete 1 report(s)"))

	out, err = run(t, "archive", "purge", "--older-than", "720h")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "deleted 1 report(s)"))

	out, err = run(t, "archive", "list", "-o", "json")
	require.NoError(t, err)
	var recs []models.ArchivedReport
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, fresh.ID, recs[0].ID)

	_, err = run(t, "archive", "purge", "--older-than", "0s")
	assert.Error(t, err)
}
