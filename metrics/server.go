// Package metrics define telemetry primitives to use across components. it uses the prometheus format.
package metrics

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// StartCollectingMetrics begins listening and supplying metrics on localhost:`metricsPort`/metrics.
// The returned server is owned by the caller and should be closed when no longer needed.
func StartCollectingMetrics(logger *zap.Logger, metricsPort int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: fmt.Sprintf(":%v", metricsPort), Handler: mux}
	go func() {
		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	return srv
}
