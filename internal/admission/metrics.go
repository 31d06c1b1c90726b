package admission

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var admissionDecisions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "router_admission_decisions_total",
		Help: "Admission decisions by outcome code.",
	},
	[]string{"code"},
)
