package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sophialabs/samplingconformance/internal/infrastructure/ports"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/usecases"
)

// Traffic request headers.
const (
	HeaderUser        = "user"
	HeaderServiceName = "service_name"
	HeaderRequired    = "required"
	HeaderTotalSpans  = "totalSpans"
)

// MaxSpansPerRequest bounds the work one traffic request can ask for.
const MaxSpansPerRequest = 100_000

// TargetServer is the instrumented application: each traffic request
// starts totalSpans spans and answers with how many were sampled.
type TargetServer struct {
	router   *chi.Mux
	sampleUC *usecases.SampleSpansUseCase
	logger   ports.Logger
}

// NewTargetServer creates a new TargetServer.
func NewTargetServer(sampleUC *usecases.SampleSpansUseCase, logger ports.Logger) *TargetServer {
	s := &TargetServer{
		sampleUC: sampleUC,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("healthcheck"))
	})
	r.HandleFunc("/getSampled", s.spanHandler("/getSampled", ""))
	// The important endpoint always reports GET, whatever the request method.
	r.HandleFunc("/importantEndpoint", s.spanHandler("/importantEndpoint", http.MethodGet))
	s.router = r

	return s
}

// ServeHTTP implements http.Handler.
func (s *TargetServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *TargetServer) spanHandler(route, method string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		total, err := strconv.Atoi(r.Header.Get(HeaderTotalSpans))
		if err != nil || total < 0 || total > MaxSpansPerRequest {
			http.Error(w, "invalid totalSpans header", http.StatusBadRequest)
			return
		}
		service := r.Header.Get(HeaderServiceName)
		if service == "" {
			http.Error(w, "missing service_name header", http.StatusBadRequest)
			return
		}

		traffic := usecases.SpanTraffic{
			ServiceName: service,
			Method:      method,
			URL:         "http://" + r.Host + route,
			Route:       route,
			Target:      route,
			User:        r.Header.Get(HeaderUser),
			Required:    r.Header.Get(HeaderRequired),
		}
		if traffic.Method == "" {
			traffic.Method = r.Method
		}

		sampled, err := s.sampleUC.Execute(r.Context(), traffic, total)
		if err != nil {
			s.logger.Warn("span generation interrupted", "error", err, "sampled", sampled)
			http.Error(w, "request cancelled", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(strconv.Itoa(sampled)))
	}
}
