// Package api serves conversations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/autoosone/auto-state/agent/bridge"
	contractx "github.com/autoosone/auto-state/agent/contract"
	"github.com/autoosone/auto-state/agent/flow"
	statex "github.com/autoosone/auto-state/agent/state"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

const maxRequestBodySize = 1 << 20

// Chatter runs one chat turn against a conversation.
type Chatter interface {
	Converse(ctx context.Context, target bridge.Target, text string) (bridge.Reply, error)
}

type Option func(*Server)

func WithChatAgent(c Chatter) Option {
	return func(s *Server) { s.chat = c }
}

type Server struct {
	flow   *flow.Flow
	chat   Chatter
	router chi.Router
}

func NewServer(f *flow.Flow, opts ...Option) (*Server, error) {
	if f == nil {
		return nil, errors.New("flow is required")
	}
	s := &Server{flow: f}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/healthz"))

	r.Handle("/metrics", promhttp.Handler())
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleStart)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Post("/actions/{name}", s.handleAction)
			r.Post("/messages", s.handleMessage)
		})
	})
	return r
}

type sessionView struct {
	SessionID    string              `json:"session_id"`
	DurableID    *int64              `json:"durable_session_id,omitempty"`
	Stage        statex.Stage        `json:"stage"`
	State        statex.Snapshot     `json:"state"`
	Capabilities bridge.Capabilities `json:"capabilities"`
}

func viewOf(c *flow.Conversation) sessionView {
	v := sessionView{
		SessionID:    c.LocalID(),
		Stage:        c.Stage(),
		State:        c.Snapshot(),
		Capabilities: c.Surface().Capabilities(),
	}
	if id, ok := c.DurableID(); ok {
		v.DurableID = &id
	}
	return v
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	c, err := s.flow.Start(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(c))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	c, err := s.flow.Resume(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(c))
}

type actionRequest struct {
	Args     map[string]any      `json:"args"`
	Response *contractx.Response `json:"response,omitempty"`
}

type actionResponse struct {
	Result  contractx.Result `json:"result"`
	Error   string           `json:"error,omitempty"`
	Session sessionView      `json:"session"`
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	c, err := s.flow.Resume(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req actionRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	if req.Response != nil {
		ctx = contractx.WithResponse(ctx, *req.Response)
	}

	res, err := c.Invoke(ctx, chi.URLParam(r, "name"), req.Args)
	out := actionResponse{Result: res, Session: viewOf(c)}
	if err != nil {
		out.Error = err.Error()
		writeJSON(w, statusFor(err), out)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type messageRequest struct {
	Text string `json:"text"`
}

type messageResponse struct {
	Reply   bridge.Reply `json:"reply"`
	Session sessionView  `json:"session"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody{Error: "chat agent is not configured"})
		return
	}
	c, err := s.flow.Resume(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req messageRequest
	if !decode(w, r, &req) {
		return
	}
	reply, err := s.chat.Converse(r.Context(), c, req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Reply: reply, Session: viewOf(c)})
}

type errorBody struct {
	Error string `json:"error"`
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "request body too large"})
			return false
		}
		if errors.Is(err, io.EOF) {
			return true
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, contractx.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, contractx.ErrStageInactive), errors.Is(err, contractx.ErrAlreadyConfirmed):
		return http.StatusConflict
	case errors.Is(err, contractx.ErrUnknownSession), errors.Is(err, contractx.ErrUnknownAction):
		return http.StatusNotFound
	case errors.Is(err, contractx.ErrModelInvoke):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write response failed")
	}
}
