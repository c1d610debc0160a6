package keys

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sid = "3f2c9d4e-8a1b-4c5d-9e6f-7a8b9c0d1e2f"

func TestGenReportKey(t *testing.T) {
	k, err := GenReportKey(1700000000123456789, sid)
	require.NoError(t, err)
	assert.Equal(t, "report:01700000000123456789:"+sid, k)
	assert.NoError(t, ValidateReportKey(k))
	assert.True(t, strings.HasPrefix(k, ReportPrefix))

	_, err = GenReportKey(1, "")
	assert.Error(t, err)
	_, err = GenReportKey(1, "a:b")
	assert.Error(t, err)
	_, err = GenReportKey(-1, sid)
	assert.Error(t, err)
}

func TestReportKeysSortByTime(t *testing.T) {
	early, err := GenReportKey(999, "zzz")
	require.NoError(t, err)
	late, err := GenReportKey(1000, "aaa")
	require.NoError(t, err)
	assert.Less(t, early, late)
	assert.Less(t, early, string(ReportKeyAt(1000)))
	assert.GreaterOrEqual(t, late, string(ReportKeyAt(1000)))
	assert.Less(t, late, string(ReportUpperBound))
}

func TestParseReportKey(t *testing.T) {
	p, err := ParseReportKey("report:00000000000000000042:" + sid)
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.TS)
	assert.Equal(t, sid, p.SessionID)

	for _, bad := range []string{
		"report:42:" + sid,
		"t:00000000000000000042:" + sid,
		"report:0000000000000000004x:" + sid,
		"report:00000000000000000042:",
	} {
		_, err := ParseReportKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestReportIDRoundTrip(t *testing.T) {
	id := GenReportID(42, sid)
	assert.Equal(t, "00000000000000000042-"+sid, id)

	k, err := ReportKeyFromID(id)
	require.NoError(t, err)
	assert.Equal(t, "report:00000000000000000042:"+sid, k)

	_, err = ParseReportID("42-" + sid)
	assert.Error(t, err)
	_, err = ParseReportID("00000000000000000042_" + sid)
	assert.Error(t, err)
}
