// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rentledger_http_requests_total",
			Help: "Total HTTP requests by method, path and status code",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rentledger_http_request_duration_seconds",
			Help:    "HTTP request latency by method and path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	PaymentsRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rentledger_payments_recorded_total",
			Help: "Rent payments recorded, labelled by resulting status",
		},
		[]string{"status"},
	)

	PaymentsOverdue = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rentledger_payments_overdue",
			Help: "Rent payments currently in overdue status",
		},
	)

	PaymentsPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rentledger_payments_pending",
			Help: "Rent payments currently awaiting collection",
		},
	)

	OutstandingRentAmount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rentledger_outstanding_rent_rupees",
			Help: "Total uncollected rent across pending and overdue payments",
		},
	)

	DepositsHeld = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rentledger_deposits_held",
			Help: "Security deposits currently in held status",
		},
	)

	ReceiptsGeneratedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rentledger_receipts_generated_total",
			Help: "Rent receipts generated",
		},
	)

	ReportsGeneratedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rentledger_reports_generated_total",
			Help: "Collection reports generated and archived",
		},
	)

	OnlinePaymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rentledger_online_payments_total",
			Help: "Razorpay checkouts by final status",
		},
		[]string{"status"},
	)

	SMSSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rentledger_sms_sent_total",
			Help: "Notification messages sent, labelled by type and status",
		},
		[]string{"type", "status"},
	)

	SchedulerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rentledger_scheduler_job_duration_seconds",
			Help:    "Background job run time by job name",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"job"},
	)

	SchedulerJobFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rentledger_scheduler_job_failures_total",
			Help: "Background job failures by job name",
		},
		[]string{"job"},
	)
)
