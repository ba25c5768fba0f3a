package metrics

import (
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// all metrics and middlewares for the REST API and the proving pipeline
var (
	// to prevent metrics from being initialized multiple times
	isMetricsInitVar uint32 = 0

	// active REST API connections
	activeRESTConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_rest_connections",
			Help: "Number of active REST API connections",
		},
	)

	// response times for REST APIs
	responseTimeRESTAPI = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "restapi_response_time_milliseconds",
			Help:    "REST API response time distributions",
			Buckets: []float64{1, 10, 50, 100, 500, 1000, 2000, 5000, 10000, 30000},
		},
		[]string{"method", "endpoint"},
	)

	// size of the body for REST APIs
	requestSizeRESTAPI = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "restapi_request_size_kilobytes",
			Help:    "REST API request size distributions",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"method", "endpoint"},
	)

	responseSizeRESTAPI = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "restapi_response_size_kilobytes",
			Help:    "REST API response size distributions",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"method", "endpoint"},
	)

	// Number of requests processed by REST API
	RESTRequestMetricsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rest_requests_processed_total",
		Help: "The total number of processed REST requests",
	}, []string{"method", "endpoint"})

	// Number of prove requests by outcome (success or error kind)
	ProveRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "prove_requests_total",
		Help: "The total number of prove requests by outcome",
	}, []string{"result"})

	// Number of rejected requests per training wheels check
	TrainingWheelsRejectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "training_wheels_rejections_total",
		Help: "The total number of requests rejected by the training wheels checks",
	}, []string{"step"})

	// Number of key set refreshes per issuer and outcome
	JwkRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jwk_refresh_total",
		Help: "The total number of issuer key set refreshes",
	}, []string{"iss", "result"})

	// Time spent waiting for the single proving slot
	ProverQueueWaitLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "prover_queue_wait_milliseconds",
		Help:    "Time a request waited for the prover",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	})

	// Latency of witness generation
	WitnessGenerationLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "witness_generation_latency_milliseconds",
		Help:    "Latency of witness generation",
		Buckets: prometheus.LinearBuckets(100, 250, 12),
	})

	// Latency of the proving engine
	ProofGenerationLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "proof_generation_latency_milliseconds",
		Help:    "Latency of Groth16 proof generation",
		Buckets: prometheus.LinearBuckets(250, 500, 12),
	})

	// Latency of verifying a freshly generated proof
	ProofVerificationLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "proof_verification_latency_milliseconds",
		Help:    "Latency of Groth16 proof verification",
		Buckets: prometheus.LinearBuckets(1, 5, 10),
	})
)

func setIsMetricsInit() {
	atomic.StoreUint32(&isMetricsInitVar, 1)
}

func isMetricsInit() bool {
	return atomic.LoadUint32(&isMetricsInitVar) == 1
}

func InitMetrics() {
	if !isMetricsInit() {
		setIsMetricsInit()

		// Metrics have to be registered to be exposed
		prometheus.MustRegister(activeRESTConnections)
		prometheus.MustRegister(responseTimeRESTAPI)
		prometheus.MustRegister(RESTRequestMetricsTotal)
		prometheus.MustRegister(requestSizeRESTAPI)
		prometheus.MustRegister(responseSizeRESTAPI)
		prometheus.MustRegister(ProveRequestsTotal)
		prometheus.MustRegister(TrainingWheelsRejectionsTotal)
		prometheus.MustRegister(JwkRefreshTotal)
		prometheus.MustRegister(ProverQueueWaitLatency)
		prometheus.MustRegister(WitnessGenerationLatency)
		prometheus.MustRegister(ProofGenerationLatency)
		prometheus.MustRegister(ProofVerificationLatency)
	}
}

// ObserveSince records the milliseconds elapsed since start
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(float64(time.Since(start).Milliseconds()))
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Increment the counter for the given endpoint:
		RESTRequestMetricsTotal.WithLabelValues(c.Request.Method, c.FullPath()).Inc()

		r := c.Request
		w := c.Writer

		// Start timing responseTime histogram
		start := time.Now()

		// Set activeConnections gauge
		activeRESTConnections.Inc()
		defer activeRESTConnections.Dec()

		c.Next()

		// after request

		// observe request size in kilobtyes
		if r.ContentLength > 0 {
			requestSizeRESTAPI.WithLabelValues(c.Request.Method, c.FullPath()).Observe(float64(r.ContentLength) / 1024)
		}

		// set response size
		if w.Size() > 0 {
			responseSizeRESTAPI.WithLabelValues(c.Request.Method, c.FullPath()).Observe(float64(w.Size()) / 1024)
		}

		// Set responseTime histogram
		latency := time.Since(start)
		responseTimeRESTAPI.WithLabelValues(c.Request.Method, c.FullPath()).Observe(float64(latency.Milliseconds()))
	}
}
