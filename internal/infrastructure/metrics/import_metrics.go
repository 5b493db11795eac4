package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	domain "github.com/mohammadpnp/user-directory/internal/domain/user"
)

const namespace = "userdir_import"

type collectors struct {
	jobsClaimed     prometheus.Counter
	jobsByOutcome   *prometheus.CounterVec
	rowsByOutcome   *prometheus.CounterVec
	usersWritten    *prometheus.CounterVec
	jobDuration     prometheus.Histogram
	uploadsAccepted prometheus.Counter
}

var collectorsSingleton = sync.OnceValue(func() *collectors {
	return &collectors{
		jobsClaimed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_claimed_total",
			Help:      "Total number of import job attempts started.",
		}),
		jobsByOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Import job attempts by outcome.",
		}, []string{"outcome"}),
		rowsByOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Spreadsheet rows by validation outcome.",
		}, []string{"outcome"}),
		usersWritten: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_written_total",
			Help:      "Users written by the upsert writer.",
		}, []string{"kind"}),
		jobDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of successful import job attempts.",
			Buckets: []float64{
				0.05, 0.1, 0.25, 0.5,
				1, 2.5, 5, 10,
				30, 60, 120,
			},
		}),
		uploadsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_accepted_total",
			Help:      "Spreadsheet uploads staged and enqueued.",
		}),
	}
})

// ImportMetrics records import lifecycle events as prometheus series.
// Every instance shares the same process-wide collectors.
type ImportMetrics struct {
	c *collectors
}

func NewImportMetrics() *ImportMetrics {
	return &ImportMetrics{c: collectorsSingleton()}
}

func (m *ImportMetrics) UploadAccepted() {
	m.c.uploadsAccepted.Inc()
}

func (m *ImportMetrics) JobClaimed(domain.ImportJob) {
	m.c.jobsClaimed.Inc()
}

func (m *ImportMetrics) RowRejected(kind string) {
	m.c.rowsByOutcome.WithLabelValues(kind).Inc()
}

func (m *ImportMetrics) JobSucceeded(_ domain.ImportJob, summary domain.ImportSummary, elapsed time.Duration) {
	m.c.jobsByOutcome.WithLabelValues("succeeded").Inc()
	m.c.rowsByOutcome.WithLabelValues("accepted").Add(float64(summary.ProcessedCount))
	m.c.usersWritten.WithLabelValues("inserted").Add(float64(summary.InsertedCount))
	m.c.usersWritten.WithLabelValues("updated").Add(float64(summary.UpdatedCount))
	m.c.jobDuration.Observe(elapsed.Seconds())
}

func (m *ImportMetrics) JobRetryScheduled(domain.ImportJob, time.Duration, error) {
	m.c.jobsByOutcome.WithLabelValues("retry_scheduled").Inc()
}

func (m *ImportMetrics) JobFailedPermanently(domain.ImportJob, error) {
	m.c.jobsByOutcome.WithLabelValues("failed").Inc()
}
