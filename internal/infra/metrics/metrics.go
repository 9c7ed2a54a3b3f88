package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_sales_created_total",
		Help: "Successfully committed sales.",
	})

	SalesCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_sales_cancelled_total",
		Help: "Cancelled sales.",
	})

	SaleFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_sale_failures_total",
		Help: "Rejected or failed sale operations by reason.",
	}, []string{"reason"})
)
