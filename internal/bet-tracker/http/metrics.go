package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics agrupa os coletores Prometheus da API
type Metrics struct {
	Requests      *prometheus.CounterVec
	CacheLookups  *prometheus.CounterVec
	StatsDuration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bet_tracker_http_requests_total",
			Help: "requisições HTTP por rota, método e status",
		}, []string{"route", "method", "code"}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bet_tracker_cache_lookups_total",
			Help: "consultas ao cache de respostas por tipo e resultado",
		}, []string{"kind", "result"}),
		StatsDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bet_tracker_stats_compute_seconds",
			Help:    "tempo de filtro + agregação sobre o snapshot",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
}

// instrument conta requisições pelo pattern da rota (não pelo path cru)
func (m *Metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.Requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
	})
}
