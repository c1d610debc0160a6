package sensor

import (
	"runtime"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"neurovision/pkg/logger"
	"neurovision/pkg/telemetry"
	"neurovision/pkg/timeutil"
)

// MonitorConfig sets the sampled path and the alert hysteresis.
type MonitorConfig struct {
	Path           string
	PollInterval   time.Duration
	DiskHighPct    int
	DiskLowPct     int
	MemHighPct     int
	RecoveryWindow time.Duration
}

// Sensor samples disk usage of the data path and heap usage, and raises an
// alert when either crosses its high-water mark. An alert clears once usage
// has stayed below the low-water mark for the recovery window.
type Sensor struct {
	config   MonitorConfig
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu           sync.Mutex
	diskAlert    bool
	memAlert     bool
	diskLowSince time.Time
	memLowSince  time.Time

	diskUsage func(path string) (float64, error)
	memUsage  func() float64
}

func NewSensor(config MonitorConfig) *Sensor {
	if config.PollInterval <= 0 {
		config.PollInterval = 30 * time.Second
	}
	if config.DiskLowPct <= 0 || config.DiskLowPct > config.DiskHighPct {
		config.DiskLowPct = config.DiskHighPct
	}
	return &Sensor{
		config:    config,
		stopCh:    make(chan struct{}),
		diskUsage: statfsUsedPct,
		memUsage:  heapUsedPct,
	}
}

func (s *Sensor) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop is safe to call more than once.
func (s *Sensor) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
}

// DiskPressure reports whether the data path is above its high-water mark.
func (s *Sensor) DiskPressure() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.diskAlert
}

func (s *Sensor) run() {
	defer s.wg.Done()
	s.check()
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.check()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Sensor) check() {
	now := timeutil.Now()
	if s.config.DiskHighPct > 0 && s.config.Path != "" {
		pct, err := s.diskUsage(s.config.Path)
		if err != nil {
			logger.Warn("sensor_disk_stat_failed", "path", s.config.Path, "error", err)
		} else {
			telemetry.DataDiskUsedPercent.Set(pct)
			s.evalDisk(pct, now)
		}
	}
	if s.config.MemHighPct > 0 {
		s.evalMem(s.memUsage(), now)
	}
}

func (s *Sensor) evalDisk(usedPct float64, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case usedPct > float64(s.config.DiskHighPct):
		s.diskLowSince = time.Time{}
		if !s.diskAlert {
			logger.Warn("disk_usage_high", "used_pct", usedPct, "threshold", s.config.DiskHighPct, "path", s.config.Path)
			s.diskAlert = true
			telemetry.ResourcePressure.WithLabelValues("disk").Set(1)
		}
	case s.diskAlert && usedPct < float64(s.config.DiskLowPct):
		if s.diskLowSince.IsZero() {
			s.diskLowSince = now
		}
		if now.Sub(s.diskLowSince) >= s.config.RecoveryWindow {
			logger.Info("disk_usage_recovered", "used_pct", usedPct, "threshold", s.config.DiskLowPct)
			s.diskAlert = false
			s.diskLowSince = time.Time{}
			telemetry.ResourcePressure.WithLabelValues("disk").Set(0)
		}
	}
}

func (s *Sensor) evalMem(usedPct float64, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if usedPct > float64(s.config.MemHighPct) {
		s.memLowSince = time.Time{}
		if !s.memAlert {
			logger.Warn("memory_usage_high", "used_pct", usedPct, "threshold", s.config.MemHighPct)
			s.memAlert = true
			telemetry.ResourcePressure.WithLabelValues("memory").Set(1)
		}
		return
	}
	if !s.memAlert {
		return
	}
	if s.memLowSince.IsZero() {
		s.memLowSince = now
	}
	if now.Sub(s.memLowSince) >= s.config.RecoveryWindow {
		logger.Info("memory_usage_recovered", "used_pct", usedPct)
		s.memAlert = false
		s.memLowSince = time.Time{}
		telemetry.ResourcePressure.WithLabelValues("memory").Set(0)
	}
}

func statfsUsedPct(path string) (float64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	if total == 0 {
		return 0, nil
	}
	available := stat.Bavail * uint64(stat.Bsize)
	return float64(total-available) / float64(total) * 100, nil
}

func heapUsedPct() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	if m.HeapSys == 0 {
		return 0
	}
	return float64(m.HeapInuse) / float64(m.HeapSys) * 100
}
