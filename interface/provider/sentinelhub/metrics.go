package sentinelhub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	processRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinelhub_process_requests_total",
		Help: "Total number of requests sent to the process api, by status code",
	}, []string{"status"})

	tokenExchangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinelhub_token_exchanges_total",
		Help: "Total number of client-credentials exchanges, by result",
	}, []string{"result"})

	storedImagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinelhub_stored_images_total",
		Help: "Total number of band images written to the storage",
	}, []string{"band"})
)
