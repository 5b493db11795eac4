package metrics

import "github.com/prometheus/client_golang/prometheus"

func (m *ImportMetrics) JobsByOutcome(outcome string) prometheus.Counter {
	return m.c.jobsByOutcome.WithLabelValues(outcome)
}

func (m *ImportMetrics) RowsByOutcome(outcome string) prometheus.Counter {
	return m.c.rowsByOutcome.WithLabelValues(outcome)
}

func (m *ImportMetrics) UsersWritten(kind string) prometheus.Counter {
	return m.c.usersWritten.WithLabelValues(kind)
}

func (m *ImportMetrics) UploadsAccepted() prometheus.Counter {
	return m.c.uploadsAccepted
}
