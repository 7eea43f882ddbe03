package workflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var stageTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "bookd",
	Subsystem: "workflow",
	Name:      "stage_transitions_total",
	Help:      "Book status transitions by target stage.",
}, []string{"stage"})
