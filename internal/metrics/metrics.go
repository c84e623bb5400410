package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QuotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "rarefish_quotes_total", Help: "Quotes computed per market and trade direction"},
		[]string{"market", "direction"},
	)
	VaultRefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "rarefish_vault_refreshes_total", Help: "Vault account refreshes applied to pool state"},
		[]string{"market"},
	)
	SwapSimulationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "rarefish_swap_simulations_total", Help: "Swap transactions simulated, by outcome"},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(QuotesTotal, VaultRefreshesTotal, SwapSimulationsTotal)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
