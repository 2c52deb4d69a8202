package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"quizroom/internal/app"
)

// Metrics holds the service collectors and implements app.Recorder.
type Metrics struct {
	QuizzesCreated  prometheus.Counter
	Joins           *prometheus.CounterVec
	Answers         *prometheus.CounterVec
	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		QuizzesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quizroom_quizzes_created_total",
			Help: "Total number of quizzes created",
		}),
		Joins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quizroom_joins_total",
				Help: "Join attempts by outcome",
			},
			[]string{"outcome"},
		),
		Answers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quizroom_answers_total",
				Help: "Recorded answers by correctness",
			},
			[]string{"correct"},
		),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quizroom_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quizroom_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.001, 0.005, 0.025, 0.1, 0.5, 1},
			},
			[]string{"method", "route"},
		),
		gatherer: reg,
	}
	reg.MustRegister(m.QuizzesCreated, m.Joins, m.Answers, m.RequestCounter, m.RequestDuration)
	return m
}

func (m *Metrics) QuizCreated() {
	m.QuizzesCreated.Inc()
}

func (m *Metrics) JoinAttempt(outcome app.JoinOutcome) {
	m.Joins.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) AnswerRecorded(correct bool) {
	m.Answers.WithLabelValues(strconv.FormatBool(correct)).Inc()
}

// Middleware records request count and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestCounter.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
