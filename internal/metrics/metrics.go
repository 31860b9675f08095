package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransfersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wardsupply_transfers_created_total",
		Help: "Transfer tasks inserted into the ledger.",
	})

	TransfersAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wardsupply_transfers_accepted_total",
		Help: "Transfer tasks moved to in_transit by a porter.",
	})

	TransfersDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wardsupply_transfers_delivered_total",
		Help: "Transfer tasks completed with inventory reconciled.",
	})

	AllocationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wardsupply_allocation_failures_total",
		Help: "Stock location attempts that found no usable source.",
	}, []string{"reason"})
)
