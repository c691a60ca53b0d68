package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/quantlab/internal/api/handlers"
	"github.com/wonny/quantlab/pkg/logger"
	"github.com/wonny/quantlab/pkg/metrics"
)

// RouterDeps are the pieces the router mounts
type RouterDeps struct {
	Handler     *handlers.Handler
	Hub         *Hub              // nil: no /alerts/ws
	Metrics     *metrics.Registry // nil: no metrics endpoint
	MetricsPath string
	Logger      *logger.Logger
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(d RouterDeps) http.Handler {
	log := d.Logger
	if log == nil {
		log = logger.Nop()
	}
	r := mux.NewRouter()

	r.HandleFunc("/health", healthCheckHandler(d.Hub)).Methods("GET")
	if d.Metrics != nil {
		path := d.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, d.Metrics.Handler()).Methods("GET")
	}

	// API v1
	v1 := r.PathPrefix("/api/v1").Subrouter()
	h := d.Handler

	v1.HandleFunc("/health", healthCheckHandler(d.Hub)).Methods("GET")
	v1.HandleFunc("/profile/{code}", h.GetProfile).Methods("GET")
	v1.HandleFunc("/fundamental/{code}", h.GetFundamental).Methods("GET")
	v1.HandleFunc("/signals/{code}", h.GetSignals).Methods("GET")
	v1.HandleFunc("/timing/{code}", h.GetTiming).Methods("GET")
	v1.HandleFunc("/backtest/massive", h.RunMassive).Methods("POST")
	v1.HandleFunc("/macro/score", h.ScoreMacro).Methods("POST")
	v1.HandleFunc("/portfolio/recommend", h.RecommendPortfolio).Methods("POST")
	v1.HandleFunc("/strategies", h.ListStrategies).Methods("GET")
	v1.HandleFunc("/strategies", h.SaveStrategy).Methods("POST")
	v1.HandleFunc("/strategies/{name}", h.GetStrategy).Methods("GET")
	if d.Hub != nil {
		v1.HandleFunc("/alerts/ws", d.Hub.ServeWS).Methods("GET")
	}

	// Apply middleware
	r.Use(loggingMiddleware(log, d.Metrics))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{
			"status":  "ok",
			"service": "quantlab-api",
		}
		if hub != nil {
			body["ws_clients"] = hub.ClientCount()
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(body)
	}
}

// statusRecorder captures the response code. It forwards Hijack so the
// websocket upgrade still works behind the middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// loggingMiddleware logs HTTP requests and counts them per route template
func loggingMiddleware(log *logger.Logger, reg *metrics.Registry) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			reg.ObserveRequest(route, rec.status)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
