package keys

import "fmt"

const (
	// segments are separated by ":"; <...> marks a variable segment
	ReportPrefix = "report:"
	ReportKey    = "report:%020d:%s" // report:<unix nanos>:<session id>
	ReportID     = "%020d-%s"        // <unix nanos>-<session id>

	// fixed padding keeps lexicographic order equal to time order
	TSPadWidth = 20
)

// ReportUpperBound is the exclusive end of the report keyspace.
var ReportUpperBound = []byte("report;")

func GenReportKey(ts int64, sessionID string) (string, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return "", err
	}
	if ts < 0 {
		return "", fmt.Errorf("timestamp must be non-negative: %d", ts)
	}
	return fmt.Sprintf(ReportKey, ts, sessionID), nil
}

func GenReportID(ts int64, sessionID string) string {
	return fmt.Sprintf(ReportID, ts, sessionID)
}

// ReportKeyAt returns the first key at or after ts. Every report key
// sorting below it was archived strictly before ts.
func ReportKeyAt(ts int64) []byte {
	if ts < 0 {
		ts = 0
	}
	return []byte(fmt.Sprintf("report:%020d:", ts))
}
