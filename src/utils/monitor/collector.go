package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes the monitor report as prometheus metrics
type Collector struct {
	monitor *Monitor

	StartTimestamp *prometheus.Desc
	UpForSeconds   *prometheus.Desc

	RecordsSubmitted    *prometheus.Desc
	AnchorsFresh        *prometheus.Desc
	AnchorsDuplicate    *prometheus.Desc
	MintsSucceeded      *prometheus.Desc
	MintsFailed         *prometheus.Desc
	MintsDuplicate      *prometheus.Desc
	MintConflicts       *prometheus.Desc
	LeasesExpired       *prometheus.Desc
	AttestationsApplied *prometheus.Desc
	EventsPublished     *prometheus.Desc

	AverageRecordsSubmittedPerMinute *prometheus.Desc
	AverageMintsPerMinute            *prometheus.Desc

	DbError     *prometheus.Desc
	FabricError *prometheus.Desc
	ChainError  *prometheus.Desc
	AuthError   *prometheus.Desc
	AttestError *prometheus.Desc
}

func NewCollector() *Collector {
	return &Collector{
		StartTimestamp: prometheus.NewDesc("start_timestamp", "", nil, nil),
		UpForSeconds:   prometheus.NewDesc("up_for_seconds", "", nil, nil),

		RecordsSubmitted:    prometheus.NewDesc("records_submitted", "", nil, nil),
		AnchorsFresh:        prometheus.NewDesc("anchors_fresh", "", nil, nil),
		AnchorsDuplicate:    prometheus.NewDesc("anchors_duplicate", "", nil, nil),
		MintsSucceeded:      prometheus.NewDesc("mints_succeeded", "", nil, nil),
		MintsFailed:         prometheus.NewDesc("mints_failed", "", nil, nil),
		MintsDuplicate:      prometheus.NewDesc("mints_duplicate", "", nil, nil),
		MintConflicts:       prometheus.NewDesc("mint_conflicts", "", nil, nil),
		LeasesExpired:       prometheus.NewDesc("leases_expired", "", nil, nil),
		AttestationsApplied: prometheus.NewDesc("attestations_applied", "", nil, nil),
		EventsPublished:     prometheus.NewDesc("events_published", "", nil, nil),

		AverageRecordsSubmittedPerMinute: prometheus.NewDesc("average_records_submitted_per_minute", "", nil, nil),
		AverageMintsPerMinute:            prometheus.NewDesc("average_mints_per_minute", "", nil, nil),

		// Errors
		DbError:     prometheus.NewDesc("error_db", "", nil, nil),
		FabricError: prometheus.NewDesc("error_fabric", "", nil, nil),
		ChainError:  prometheus.NewDesc("error_chain", "", nil, nil),
		AuthError:   prometheus.NewDesc("error_auth", "", nil, nil),
		AttestError: prometheus.NewDesc("error_attest", "", nil, nil),
	}
}

func (self *Collector) WithMonitor(m *Monitor) *Collector {
	self.monitor = m
	return self
}

func (self *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- self.StartTimestamp
	ch <- self.UpForSeconds
	ch <- self.RecordsSubmitted
	ch <- self.AnchorsFresh
	ch <- self.AnchorsDuplicate
	ch <- self.MintsSucceeded
	ch <- self.MintsFailed
	ch <- self.MintsDuplicate
	ch <- self.MintConflicts
	ch <- self.LeasesExpired
	ch <- self.AttestationsApplied
	ch <- self.EventsPublished
	ch <- self.AverageRecordsSubmittedPerMinute
	ch <- self.AverageMintsPerMinute

	// Errors
	ch <- self.DbError
	ch <- self.FabricError
	ch <- self.ChainError
	ch <- self.AuthError
	ch <- self.AttestError
}

// Collect implements required collect function for all prometheus collectors
func (self *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(self.StartTimestamp, prometheus.GaugeValue, float64(self.monitor.Report.StartTimestamp.Load()))
	ch <- prometheus.MustNewConstMetric(self.UpForSeconds, prometheus.GaugeValue, float64(self.monitor.Report.UpForSeconds.Load()))
	ch <- prometheus.MustNewConstMetric(self.RecordsSubmitted, prometheus.CounterValue, float64(self.monitor.Report.RecordsSubmitted.Load()))
	ch <- prometheus.MustNewConstMetric(self.AnchorsFresh, prometheus.CounterValue, float64(self.monitor.Report.AnchorsFresh.Load()))
	ch <- prometheus.MustNewConstMetric(self.AnchorsDuplicate, prometheus.CounterValue, float64(self.monitor.Report.AnchorsDuplicate.Load()))
	ch <- prometheus.MustNewConstMetric(self.MintsSucceeded, prometheus.CounterValue, float64(self.monitor.Report.MintsSucceeded.Load()))
	ch <- prometheus.MustNewConstMetric(self.MintsFailed, prometheus.CounterValue, float64(self.monitor.Report.MintsFailed.Load()))
	ch <- prometheus.MustNewConstMetric(self.MintsDuplicate, prometheus.CounterValue, float64(self.monitor.Report.MintsDuplicate.Load()))
	ch <- prometheus.MustNewConstMetric(self.MintConflicts, prometheus.CounterValue, float64(self.monitor.Report.MintConflicts.Load()))
	ch <- prometheus.MustNewConstMetric(self.LeasesExpired, prometheus.CounterValue, float64(self.monitor.Report.LeasesExpired.Load()))
	ch <- prometheus.MustNewConstMetric(self.AttestationsApplied, prometheus.CounterValue, float64(self.monitor.Report.AttestationsApplied.Load()))
	ch <- prometheus.MustNewConstMetric(self.EventsPublished, prometheus.CounterValue, float64(self.monitor.Report.EventsPublished.Load()))
	ch <- prometheus.MustNewConstMetric(self.AverageRecordsSubmittedPerMinute, prometheus.GaugeValue, self.monitor.Report.AverageRecordsSubmittedPerMinute.Load())
	ch <- prometheus.MustNewConstMetric(self.AverageMintsPerMinute, prometheus.GaugeValue, self.monitor.Report.AverageMintsPerMinute.Load())

	// Errors
	ch <- prometheus.MustNewConstMetric(self.DbError, prometheus.CounterValue, float64(self.monitor.Report.Errors.DbError.Load()))
	ch <- prometheus.MustNewConstMetric(self.FabricError, prometheus.CounterValue, float64(self.monitor.Report.Errors.FabricError.Load()))
	ch <- prometheus.MustNewConstMetric(self.ChainError, prometheus.CounterValue, float64(self.monitor.Report.Errors.ChainError.Load()))
	ch <- prometheus.MustNewConstMetric(self.AuthError, prometheus.CounterValue, float64(self.monitor.Report.Errors.AuthError.Load()))
	ch <- prometheus.MustNewConstMetric(self.AttestError, prometheus.CounterValue, float64(self.monitor.Report.Errors.AttestError.Load()))
}
