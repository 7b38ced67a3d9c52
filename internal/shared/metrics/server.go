package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type HealthFunc func(ctx context.Context) error

// Handler monta o mux com /metrics e /healthz
func Handler(healthFn HealthFunc) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()

		if healthFn != nil {
			if err := healthFn(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(fmt.Sprintf("unhealthy: %v", err)))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}

// StartMetricsServer sobe um servidor HTTP leve só pra /metrics e /healthz,
// em goroutine própria. Quem chama faz o Shutdown.
func StartMetricsServer(log *zap.Logger, port string, healthFn HealthFunc) *http.Server {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           Handler(healthFn),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("metrics/health listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()

	return srv
}
