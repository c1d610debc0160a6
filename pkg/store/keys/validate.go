package keys

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	// letters, digits, dot, underscore, dash; bounded to protect key shapes
	idRegexp        = regexp.MustCompile(`^[A-Za-z0-9._-]{1,256}$`)
	reportKeyRegexp = regexp.MustCompile(`^report:([0-9]{20}):([A-Za-z0-9._-]{1,256})$`)
)

func ValidateSessionID(id string) error {
	if id == "" {
		return errors.New("session id empty")
	}
	if !idRegexp.MatchString(id) {
		return fmt.Errorf("invalid session id: %q", id)
	}
	return nil
}

func ValidateReportKey(key string) error {
	if !reportKeyRegexp.MatchString(key) {
		return fmt.Errorf("invalid report key format: %q", key)
	}
	return nil
}
