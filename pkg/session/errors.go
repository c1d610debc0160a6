package session

import "errors"

var (
	ErrNoImage          = errors.New("no scan uploaded")
	ErrEmptyMessage     = errors.New("message is empty")
	ErrResponsePending  = errors.New("a response is already pending")
	ErrProcessing       = errors.New("scan is still processing")
	ErrReportPending    = errors.New("a report is already being generated")
	ErrReportSuperseded = errors.New("scan replaced while the report was generated")
	ErrNoReport         = errors.New("no report generated")
	ErrInvalidImage     = errors.New("upload must be an image")
	ErrImageTooLarge    = errors.New("image exceeds the upload limit")
	ErrSessionNotFound  = errors.New("session not found")
	ErrUnknownRegion    = errors.New("unknown region")
	ErrTooManySessions  = errors.New("session limit reached")
	ErrClosed           = errors.New("session closed")
)
