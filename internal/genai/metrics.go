package genai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bookd",
		Subsystem: "genai",
		Name:      "attempts_total",
		Help:      "Total generation attempts, including retries.",
	})

	rateLimitRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bookd",
		Subsystem: "genai",
		Name:      "rate_limit_retries_total",
		Help:      "Retries triggered by provider rate limiting.",
	})

	generationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bookd",
		Subsystem: "genai",
		Name:      "failures_total",
		Help:      "Generation calls that failed permanently.",
	})
)
