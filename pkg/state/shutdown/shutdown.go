package shutdown

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"neurovision/pkg/logger"
	"neurovision/pkg/state"
)

type exitRequest struct {
	Time      string            `json:"time"`
	Reason    string            `json:"reason"`
	Cmd       string            `json:"cmd"`
	CrashPath string            `json:"crash_path,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
}

var exit = os.Exit

// Abort logs a fatal startup error, writes a crash dump under the data
// path and exits with status 2 after delaySeconds (default 3).
func Abort(contextMsg string, err error, dataPath string, delaySeconds ...int) {
	delay := 3
	if len(delaySeconds) > 0 && delaySeconds[0] >= 0 {
		delay = delaySeconds[0]
	}
	logger.Error("startup_fatal", "msg", contextMsg, "error", err)
	fmt.Fprintf(os.Stderr, "%s: %v\n", contextMsg, err)
	dumpPath, reqPath, derr := AbortWithDiagnostics(dataPath, contextMsg, err)
	if derr != nil {
		logger.Error("abort_with_diagnostics_failed", "error", derr)
		fmt.Fprintf(os.Stderr, "FAILED TO WRITE CRASH DUMP: %v\n", derr)
	} else {
		logger.Info("wrote_crash_dump", "path", dumpPath, "request", reqPath)
		fmt.Fprintf(os.Stderr, "CRASH DUMP WRITTEN: %s\n", dumpPath)
	}
	logger.Sync()
	for i := delay; i > 0; i-- {
		time.Sleep(time.Second)
	}
	exit(2)
}

// AbortWithDiagnostics writes a crash dump and an abort request referencing
// it, returning both paths.
func AbortWithDiagnostics(dataPath, reason string, err error) (string, string, error) {
	crashDir, abortDir := "./crash", "./abort"
	if dataPath != "" {
		p := state.PathsFor(dataPath)
		crashDir, abortDir = p.Crash, p.Abort
	}
	if e := os.MkdirAll(crashDir, 0o700); e != nil {
		return "", "", fmt.Errorf("failed to create crash dir: %w", e)
	}
	if e := os.MkdirAll(abortDir, 0o700); e != nil {
		return "", "", fmt.Errorf("failed to create abort dir: %w", e)
	}

	now := time.Now()
	ts := now.UnixNano()
	dumpPath := filepath.Join(crashDir, fmt.Sprintf("crash-%d.log", ts))

	f, ferr := os.CreateTemp(crashDir, ".crash-*.tmp")
	if ferr != nil {
		return "", "", fmt.Errorf("failed to create temp crash file: %w", ferr)
	}
	tmpName := f.Name()
	defer func() { _ = os.Remove(tmpName) }()

	fmt.Fprintf(f, "time: %s\n", now.UTC().Format(time.RFC3339))
	fmt.Fprintf(f, "reason: %s\n", reason)
	fmt.Fprintf(f, "error: %v\n", err)
	fmt.Fprintf(f, "\n--- goroutine stacks ---\n")
	buf := make([]byte, 1<<20)
	n := runtime.Stack(buf, true)
	_, _ = f.Write(buf[:n])
	_ = f.Sync()
	_ = f.Close()

	if err := os.Rename(tmpName, dumpPath); err != nil {
		return "", "", fmt.Errorf("failed to move crash dump into place: %w", err)
	}

	req := exitRequest{
		Time:      now.UTC().Format(time.RFC3339),
		Reason:    reason,
		Cmd:       "crash",
		CrashPath: dumpPath,
		Meta:      map[string]string{"pid": fmt.Sprintf("%d", os.Getpid())},
	}
	data, merr := json.MarshalIndent(req, "", "  ")
	if merr != nil {
		return dumpPath, "", fmt.Errorf("failed to encode req: %w", merr)
	}
	reqPath := filepath.Join(abortDir, fmt.Sprintf("req-%d.json", ts))
	if err := os.WriteFile(reqPath, data, 0o600); err != nil {
		return dumpPath, "", fmt.Errorf("failed to write req: %w", err)
	}
	return dumpPath, reqPath, nil
}

// SetupSignalHandler returns a context cancelled on SIGINT or SIGTERM. A
// SIGPIPE dumps goroutine stacks to the log before cancelling.
func SetupSignalHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM, syscall.SIGPIPE)
	go func() {
		defer signal.Stop(sigc)
		select {
		case s := <-sigc:
			if s == syscall.SIGPIPE {
				buf := make([]byte, 1<<20)
				n := runtime.Stack(buf, true)
				logger.Info("goroutine_stack_dump", "dump", string(buf[:n]))
			}
			logger.Info("signal_received", "signal", s.String(), "msg", "shutdown requested")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
