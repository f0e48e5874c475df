package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus collectors for the transcription pipeline.
type Metrics struct {
	registry           *prometheus.Registry
	jobsTotal          *prometheus.CounterVec
	jobRetriesTotal    prometheus.Counter
	degradedJobsTotal  prometheus.Counter
	stageDuration      *prometheus.HistogramVec
	diarizationChunks  prometheus.Counter
	chunkFailuresTotal prometheus.Counter
	activeJobs         prometheus.Gauge
}

// New creates and registers Prometheus collectors for the pipeline.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	jobsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "doctalk_jobs_total",
		Help: "Total number of processed jobs by outcome",
	}, []string{"outcome"})
	jobRetriesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "doctalk_job_retries_total",
		Help: "Total number of job retry attempts",
	})
	degradedJobsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "doctalk_degraded_jobs_total",
		Help: "Total number of jobs completed without speaker labels",
	})
	stageDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "doctalk_stage_duration_seconds",
		Help:    "Duration of pipeline stages",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})
	diarizationChunks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "doctalk_diarization_chunks_total",
		Help: "Total number of speech chunks sent to the diarization engine",
	})
	chunkFailuresTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "doctalk_diarization_chunk_failures_total",
		Help: "Total number of speech chunks the diarization engine failed on",
	})
	activeJobs := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "doctalk_active_jobs",
		Help: "Number of jobs currently being processed",
	})

	registry.MustRegister(
		jobsTotal,
		jobRetriesTotal,
		degradedJobsTotal,
		stageDuration,
		diarizationChunks,
		chunkFailuresTotal,
		activeJobs,
	)

	return &Metrics{
		registry:           registry,
		jobsTotal:          jobsTotal,
		jobRetriesTotal:    jobRetriesTotal,
		degradedJobsTotal:  degradedJobsTotal,
		stageDuration:      stageDuration,
		diarizationChunks:  diarizationChunks,
		chunkFailuresTotal: chunkFailuresTotal,
		activeJobs:         activeJobs,
	}
}

// IncJobs increments the job counter for the given outcome
// ("completed", "failed").
func (m *Metrics) IncJobs(outcome string) {
	m.jobsTotal.WithLabelValues(outcome).Inc()
}

// IncRetries increments the retry counter.
func (m *Metrics) IncRetries() {
	m.jobRetriesTotal.Inc()
}

// IncDegraded increments the degraded-completion counter.
func (m *Metrics) IncDegraded() {
	m.degradedJobsTotal.Inc()
}

// ObserveStage records the duration of one pipeline stage in seconds.
func (m *Metrics) ObserveStage(stage string, seconds float64) {
	m.stageDuration.WithLabelValues(stage).Observe(seconds)
}

// AddDiarizationChunks adds to the chunk counter.
func (m *Metrics) AddDiarizationChunks(n int) {
	m.diarizationChunks.Add(float64(n))
}

// IncChunkFailures increments the per-chunk failure counter.
func (m *Metrics) IncChunkFailures() {
	m.chunkFailuresTotal.Inc()
}

// JobStarted and JobFinished track the active job gauge.
func (m *Metrics) JobStarted()  { m.activeJobs.Inc() }
func (m *Metrics) JobFinished() { m.activeJobs.Dec() }

// Handler returns an http.Handler that serves Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
