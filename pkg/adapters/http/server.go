package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maxbot-ai/dialogtree/pkg/domain"
)

// Bot defines the interface the HTTP adapter drives. The root package's
// Bot satisfies it.
type Bot interface {
	ProcessTurn(ctx context.Context, in domain.TurnInput) (*domain.TurnOutput, error)
	ProcessRPC(ctx context.Context, in domain.RPCInput) (*domain.TurnOutput, error)
	Session(ctx context.Context, key string) (*domain.Session, error)
	ResetSession(ctx context.Context, key string) error
	Sessions(ctx context.Context) ([]string, error)
}

// Server exposes a Bot over HTTP.
type Server struct {
	bot    Bot
	logger *slog.Logger
}

// NewHandler creates a new HTTP handler for the bot.
func NewHandler(bot Bot, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{bot: bot, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/turn", s.processTurn)
		r.Post("/rpc", s.processRPC)
		r.Get("/sessions", s.listSessions)
		r.Get("/sessions/{key}", s.getSession)
		r.Delete("/sessions/{key}", s.deleteSession)
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// TurnRequest is the body of POST /v1/turn. Intents and entities come
// pre-recognized from the caller's NLU stage.
type TurnRequest struct {
	SessionKey string                          `json:"session_key"`
	Text       string                          `json:"text"`
	Intents    []string                        `json:"intents,omitempty"`
	Entities   map[string][]domain.EntityMatch `json:"entities,omitempty"`
	Profile    map[string]any                  `json:"profile,omitempty"`
}

// RPCRequest is the body of POST /v1/rpc.
type RPCRequest struct {
	SessionKey string         `json:"session_key"`
	Method     string         `json:"method"`
	Params     map[string]any `json:"params,omitempty"`
}

// TurnResponse is the reply for both turn and RPC processing.
type TurnResponse struct {
	TurnID  string          `json:"turn_id"`
	Texts   []string        `json:"texts"`
	Session *domain.Session `json:"session"`
}

// ErrorResponse is the JSON body of every non-2xx reply.
type ErrorResponse struct {
	Error  string   `json:"error"`
	Params []string `json:"params,omitempty"`
}

func (s *Server) processTurn(w http.ResponseWriter, r *http.Request) {
	var body TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err), nil)
		return
	}

	intents := make(domain.Intents, len(body.Intents))
	for _, name := range body.Intents {
		intents[name] = true
	}

	out, err := s.bot.ProcessTurn(r.Context(), domain.TurnInput{
		SessionKey: body.SessionKey,
		Text:       body.Text,
		Intents:    intents,
		Entities:   body.Entities,
		Profile:    body.Profile,
	})
	if err != nil {
		s.writeProcessError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, TurnResponse{
		TurnID:  out.TurnID,
		Texts:   out.Texts,
		Session: out.Session,
	})
}

func (s *Server) processRPC(w http.ResponseWriter, r *http.Request) {
	var body RPCRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err), nil)
		return
	}

	out, err := s.bot.ProcessRPC(r.Context(), domain.RPCInput{
		SessionKey: body.SessionKey,
		Method:     body.Method,
		Params:     body.Params,
	})
	if err != nil {
		s.writeProcessError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, TurnResponse{
		TurnID:  out.TurnID,
		Texts:   out.Texts,
		Session: out.Session,
	})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	sess, err := s.bot.Session(r.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			s.writeError(w, http.StatusNotFound, err, nil)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err, nil)
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.bot.ResetSession(r.Context(), chi.URLParam(r, "key")); err != nil {
		s.writeError(w, http.StatusInternalServerError, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	keys, err := s.bot.Sessions(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err, nil)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"sessions": keys})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeProcessError maps engine and validation errors onto HTTP status
// codes. Required-parameter failures are the caller's contract violation,
// not a server fault.
func (s *Server) writeProcessError(w http.ResponseWriter, err error) {
	var paramErr *domain.RequiredParamError
	switch {
	case errors.As(err, &paramErr):
		s.writeError(w, http.StatusUnprocessableEntity, err, paramErr.Params)
	case errors.Is(err, domain.ErrMissingSessionKey):
		s.writeError(w, http.StatusBadRequest, err, nil)
	case errors.Is(err, domain.ErrUnknownMethod):
		s.writeError(w, http.StatusNotFound, err, nil)
	case errors.Is(err, domain.ErrSessionNotFound):
		s.writeError(w, http.StatusNotFound, err, nil)
	default:
		s.logger.Error("turn processing failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, err, nil)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error, params []string) {
	s.writeJSON(w, status, ErrorResponse{Error: err.Error(), Params: params})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
