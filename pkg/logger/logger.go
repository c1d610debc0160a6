package logger

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

var Log *slog.Logger

type asyncWriter struct {
	ch chan []byte
}

func (a *asyncWriter) Write(p []byte) (n int, err error) {
	cp := make([]byte, len(p))
	copy(cp, p)
	select {
	case a.ch <- cp:
		return len(p), nil
	default:
		// drop if queue full to avoid blocking
		return len(p), nil
	}
}

var (
	logCh     chan []byte
	logStopCh chan struct{}
	logWG     sync.WaitGroup
	stopOnce  *sync.Once
)

// ParseLevel maps a level name to a slog level. Unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init installs the global logger with an async buffered text handler.
// An empty level falls back to NEUROVISION_LOG_LEVEL. The sink defaults to
// stdout; NEUROVISION_LOG_SINK=file:/path writes to a file instead.
func Init(level string) {
	if strings.TrimSpace(level) == "" {
		level = os.Getenv("NEUROVISION_LOG_LEVEL")
	}
	sink := os.Getenv("NEUROVISION_LOG_SINK")

	logCh = make(chan []byte, 10000)
	logStopCh = make(chan struct{})
	stopOnce = &sync.Once{}
	aw := &asyncWriter{ch: logCh}
	Log = slog.New(slog.NewTextHandler(aw, &slog.HandlerOptions{Level: ParseLevel(level)}))

	logWG.Add(1)
	go func(ch chan []byte, stop chan struct{}) {
		defer logWG.Done()
		var out io.Writer = os.Stdout
		var f *os.File
		if strings.HasPrefix(sink, "file:") {
			path := strings.TrimPrefix(sink, "file:")
			var err error
			f, err = os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to open log file %s: %v\n", path, err)
			} else {
				out = f
			}
		}
		buf := bufio.NewWriterSize(out, 8192)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case b := <-ch:
				buf.Write(b)
			case <-ticker.C:
				buf.Flush()
			case <-stop:
				// drain what is already queued
				for drained := false; !drained; {
					select {
					case b := <-ch:
						buf.Write(b)
					default:
						drained = true
					}
				}
				buf.Flush()
				if f != nil {
					f.Close()
				}
				return
			}
		}
	}(logCh, logStopCh)
}

// InitWriter installs a synchronous logger writing to w. Used by tools and tests.
func InitWriter(w io.Writer, level string) {
	Log = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// Sync flushes any buffered logs and stops the async writer.
func Sync() {
	if logStopCh == nil || stopOnce == nil {
		return
	}
	stopOnce.Do(func() {
		close(logStopCh)
		logWG.Wait()
	})
}

// Debug logs with slog-style key/value pairs.
func Debug(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Debug(msg, args...)
}

// Info logs with slog-style key/value pairs.
func Info(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Info(msg, args...)
}

// Warn logs with slog-style key/value pairs.
func Warn(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Warn(msg, args...)
}

// Error logs with slog-style key/value pairs.
func Error(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Error(msg, args...)
}

// LogConfigSummary prints a human-friendly, hyphenated block to stdout so
// startup settings are easy to read in a terminal.
func LogConfigSummary(title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprint(os.Stdout, FormatSummary(title, items))
}

// FormatSummary renders the block printed by LogConfigSummary.
func FormatSummary(title string, items []string) string {
	human := strings.ReplaceAll(title, "_", " ")
	words := strings.Fields(human)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	header := "== " + strings.Join(words, " ") + " "
	const width = 60
	if len(header) < width {
		header = header + strings.Repeat("=", width-len(header))
	}
	var b strings.Builder
	b.WriteString(header + "\n")
	for _, it := range items {
		b.WriteString("- " + it + "\n")
	}
	b.WriteString("\n")
	return b.String()
}
