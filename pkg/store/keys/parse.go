package keys

import (
	"fmt"
	"strconv"
	"strings"
)

type ReportKeyParts struct {
	TS        int64
	SessionID string
}

func parsePaddedInt(s string, width int) (int64, error) {
	if len(s) != width {
		return 0, fmt.Errorf("length invalid: %s", s)
	}
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" {
		return 0, nil
	}
	return strconv.ParseInt(trimmed, 10, 64)
}

func ParseReportKey(key string) (*ReportKeyParts, error) {
	if err := ValidateReportKey(key); err != nil {
		return nil, err
	}
	parts := strings.SplitN(key, ":", 3)
	ts, err := parsePaddedInt(parts[1], TSPadWidth)
	if err != nil {
		return nil, fmt.Errorf("invalid report key timestamp: %w", err)
	}
	return &ReportKeyParts{TS: ts, SessionID: parts[2]}, nil
}

// ParseReportID splits an archived report id. Session ids may contain
// dashes, so only the fixed-width timestamp prefix is split off.
func ParseReportID(id string) (*ReportKeyParts, error) {
	if len(id) < TSPadWidth+2 || id[TSPadWidth] != '-' {
		return nil, fmt.Errorf("invalid report id: %s", id)
	}
	ts, err := parsePaddedInt(id[:TSPadWidth], TSPadWidth)
	if err != nil {
		return nil, fmt.Errorf("invalid report id timestamp: %w", err)
	}
	sid := id[TSPadWidth+1:]
	if err := ValidateSessionID(sid); err != nil {
		return nil, err
	}
	return &ReportKeyParts{TS: ts, SessionID: sid}, nil
}

// ReportKeyFromID maps an archived report id to its storage key.
func ReportKeyFromID(id string) (string, error) {
	p, err := ParseReportID(id)
	if err != nil {
		return "", err
	}
	return GenReportKey(p.TS, p.SessionID)
}
