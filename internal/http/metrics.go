package http

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestsTotal cuenta requests HTTP por metodo, ruta y clase de status.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "forum_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// LoginAttemptsTotal cuenta intentos de login por resultado.
	LoginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_auth_login_attempts_total",
			Help: "Login attempts",
		},
		[]string{"result"},
	)

	GateRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_auth_gate_rejections_total",
			Help: "Requests rejected by the auth gate",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(RequestsTotal, RequestDuration, LoginAttemptsTotal, GateRejectionsTotal)
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestsTotal.WithLabelValues(c.Request.Method, route, statusClass(c.Writer.Status())).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}
