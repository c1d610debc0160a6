package telemetry

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "neurovision",
		Name:      "sessions_active",
		Help:      "Number of live sessions.",
	})

	SessionsExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "neurovision",
		Name:      "sessions_expired_total",
		Help:      "Sessions evicted by the idle sweeper.",
	})

	ImagesUploaded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "neurovision",
		Name:      "images_uploaded_total",
		Help:      "Accepted scan uploads.",
	})

	ChatResponses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "neurovision",
		Name:      "chat_responses_total",
		Help:      "Assistant responses by classified intent.",
	}, []string{"intent"})

	ChatRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "neurovision",
		Name:      "chat_rejected_total",
		Help:      "Chat submissions rejected before resolution.",
	}, []string{"reason"})

	ReportsGenerated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "neurovision",
		Name:      "reports_generated_total",
		Help:      "Generated reports by region.",
	}, []string{"region"})

	ReportsPurged = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "neurovision",
		Name:      "reports_purged_total",
		Help:      "Archived reports removed by retention.",
	})

	DataDiskUsedPercent = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "neurovision",
		Name:      "data_disk_used_percent",
		Help:      "Used space on the filesystem holding the data path.",
	})

	ResourcePressure = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "neurovision",
		Name:      "resource_pressure",
		Help:      "1 while the sensor reports the resource above its high-water mark.",
	}, []string{"resource"})

	heapAlloc = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "go_heap_alloc_bytes",
			Help: "Current heap allocation in bytes.",
		},
		func() float64 {
			var stats runtime.MemStats
			runtime.ReadMemStats(&stats)
			return float64(stats.HeapAlloc)
		},
	)
)

func init() {
	prometheus.MustRegister(
		SessionsActive,
		SessionsExpired,
		ImagesUploaded,
		ChatResponses,
		ChatRejected,
		ReportsGenerated,
		ReportsPurged,
		DataDiskUsedPercent,
		ResourcePressure,
		heapAlloc,
	)
}
