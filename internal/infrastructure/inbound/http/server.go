package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sophialabs/samplingconformance/internal/domain/journal"
	"github.com/sophialabs/samplingconformance/internal/domain/rule"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/ports"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/services"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/usecases"
)

const maxBodySize = 1 << 20 // 1 MB

// Backend API paths.
const (
	PathCreateRule = "/CreateSamplingRule"
	PathDeleteRule = "/DeleteSamplingRule"
	PathListRules  = "/GetSamplingRules"
)

// ruleRecord wraps a definition the way GetSamplingRules lists it.
type ruleRecord struct {
	SamplingRule rule.Definition `json:"SamplingRule"`
}

// Server is the emulated rule backend: the sampling-rule API plus admin
// routes for inspecting the emulator.
type Server struct {
	router    *chi.Mux
	createUC  *usecases.CreateRuleUseCase
	deleteUC  *usecases.DeleteRuleUseCase
	reloadUC  *usecases.LoadSeedRulesUseCase
	index     *services.RuleIndex
	decisions *journal.RingBuffer[journal.Decision]
	logger    ports.Logger
}

// NewServer creates a new Server.
func NewServer(
	createUC *usecases.CreateRuleUseCase,
	deleteUC *usecases.DeleteRuleUseCase,
	index *services.RuleIndex,
	decisions *journal.RingBuffer[journal.Decision],
	logger ports.Logger,
) *Server {
	s := &Server{
		createUC:  createUC,
		deleteUC:  deleteUC,
		index:     index,
		decisions: decisions,
		logger:    logger,
	}
	s.router = s.buildRouter()
	return s
}

// SetReloader enables POST /__admin/reload. Call it before serving.
func (s *Server) SetReloader(reloadUC *usecases.LoadSeedRulesUseCase) {
	s.reloadUC = reloadUC
}

func (s *Server) buildRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Post(PathCreateRule, s.handleCreateRule)
	r.Post(PathDeleteRule, s.handleDeleteRule)
	r.Post(PathListRules, s.handleListRules)

	r.Route("/__admin", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/rules", s.handleAdminRules)
		r.Get("/decisions", s.handleDecisions)
		r.Post("/reload", s.handleReload)
	})

	r.NotFound(s.notFoundHandler)
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req rule.CreateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := s.createUC.Execute(r.Context(), req.SamplingRule); err != nil {
		s.logger.Warn("create rule rejected", "rule", req.SamplingRule.RuleName, "error", err)
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"SamplingRuleRecord": ruleRecord{SamplingRule: req.SamplingRule}})
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	var req rule.DeleteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	def, err := s.deleteUC.Execute(r.Context(), req.RuleName)
	switch {
	case errors.Is(err, usecases.ErrRuleNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"SamplingRuleRecord": ruleRecord{SamplingRule: def}})
}

func (s *Server) handleListRules(w http.ResponseWriter, _ *http.Request) {
	defs := s.index.Definitions()
	records := make([]ruleRecord, len(defs))
	for i, d := range defs {
		records[i] = ruleRecord{SamplingRule: d}
	}
	writeJSON(w, http.StatusOK, map[string]any{"SamplingRuleRecords": records})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "rules": s.index.Len()})
}

func (s *Server) handleAdminRules(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.index.Definitions())
}

// handleDecisions lists recent decisions, newest first. ?rule= filters by
// the deciding rule; ?page= and ?size= paginate.
func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	entries := s.decisions.Last(s.decisions.Count())
	slices.Reverse(entries)

	if name := r.URL.Query().Get("rule"); name != "" {
		entries = slices.DeleteFunc(entries, func(d journal.Decision) bool { return d.Rule != name })
	}

	writeJSON(w, http.StatusOK, services.Paginate(entries, services.ParsePageQuery(r.URL.Query())))
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.reloadUC == nil {
		writeError(w, http.StatusNotFound, "no_seed", "no seed file configured")
		return
	}

	n, err := s.reloadUC.Execute(r.Context())
	if err != nil {
		s.logger.Error("seed reload failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reload_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "rules": n})
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("request received (no route)", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
	writeError(w, http.StatusNotFound, "no_route", "no route for "+r.Method+" "+r.URL.Path)
}

func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
