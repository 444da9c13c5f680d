// Package api is the thin HTTP front-end over the vote engine (C5/C6/C7):
// a gorilla/mux router mapping each endpoint in the external interface to
// an engine call, and every votecore error Kind to its HTTP status code.
package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/luckeedao/votecore/pkg/engine"
	"github.com/luckeedao/votecore/pkg/model"
	"github.com/luckeedao/votecore/pkg/store"
	"github.com/luckeedao/votecore/pkg/template"
	"github.com/luckeedao/votecore/pkg/verify"
	"github.com/luckeedao/votecore/pkg/verr"
)

// Version is the build version surfaced on /health.
const Version = "0.1.0"

// Server wires a router around an Engine.
type Server struct {
	Engine *engine.Engine
	Store  store.Store
	Log    *zap.Logger
	router *mux.Router
}

// NewServer builds a Server with every route registered.
func NewServer(e *engine.Engine, s store.Store, log *zap.Logger) *Server {
	srv := &Server{Engine: e, Store: s, Log: log}
	srv.router = mux.NewRouter()
	srv.routes()
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.router
	r.HandleFunc("/api/v1/votes", s.handleCreateVote).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/votes", s.handleListVotes).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/votes/{id}", s.handleGetVote).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/votes/{id}/commit", s.handleCommit).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/votes/{id}/reveal", s.handleReveal).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/votes/{id}/results", s.handleResults).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/votes/{id}/verify", s.handleVerify).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/templates", s.handleListTemplates).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/templates/{id}", s.handleGetTemplate).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(verr.KindOf(err))
	writeJSON(w, status, map[string]any{
		"success": false,
		"message": err.Error(),
	})
}

// statusFor maps a votecore error Kind to the HTTP status code the
// external interface contract assigns it.
func statusFor(kind verr.Kind) int {
	switch kind {
	case verr.InvalidConfig, verr.BallotInvalid, verr.SaltMismatch, verr.HashMismatch:
		return http.StatusBadRequest
	case verr.NotFound, verr.TemplateUnknown, verr.NoCommitment:
		return http.StatusNotFound
	case verr.OutOfPhase, verr.AlreadyCommitted, verr.AlreadyRevealed:
		return http.StatusConflict
	case verr.Timeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleCreateVote(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Config model.Config `json:"config"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "malformed request body"})
		return
	}

	id, err := s.Engine.Create(r.Context(), body.Config)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vote_id": id, "success": true, "message": "vote created"})
}

func (s *Server) handleGetVote(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	v, err := s.Engine.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vote": v})
}

func (s *Server) handleListVotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := atoiDefault(q.Get("page"), 1)
	size := atoiDefault(q.Get("page_size"), 20)
	filter := model.Filter{
		Status:  model.Status(q.Get("status")),
		Creator: q.Get("creator"),
	}
	result, err := s.Engine.List(r.Context(), filter, page, size)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		Voter          string `json:"voter"`
		CommitmentHash string `json:"commitment_hash"`
		Salt           string `json:"salt"` // hex-encoded on the wire
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "malformed request body"})
		return
	}
	salt, err := decodeHexSalt(body.Salt)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": err.Error()})
		return
	}

	commitmentID, err := s.Engine.Commit(r.Context(), id, body.Voter, body.CommitmentHash, salt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"commitment_id": commitmentID, "success": true, "message": "commitment recorded"})
}

func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		Voter string `json:"voter"`
		Value any    `json:"value"`
		Salt  string `json:"salt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "malformed request body"})
		return
	}
	salt, err := decodeHexSalt(body.Salt)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": err.Error()})
		return
	}

	revealID, err := s.Engine.Reveal(r.Context(), id, body.Voter, body.Value, salt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reveal_id": revealID, "success": true, "message": "reveal recorded"})
}

func decodeHexSalt(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, verr.New(verr.InvalidConfig, "salt must be hex-encoded")
	}
	return b, nil
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	results, err := s.Engine.Results(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	report, err := s.computeVerification(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) computeVerification(ctx context.Context, id string) (*verify.Report, error) {
	v, err := s.Engine.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.Results == nil {
		return nil, verr.New(verr.OutOfPhase, "vote %q has no results to verify yet", id)
	}
	commitments, err := s.Store.ListCommitments(ctx, id)
	if err != nil {
		return nil, err
	}
	reveals, err := s.Store.ListReveals(ctx, id)
	if err != nil {
		return nil, err
	}
	return verify.Vote(v, commitments, reveals)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	ids := template.IDs()
	items := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		tpl, _ := template.Lookup(id)
		items = append(items, map[string]any{"id": id, "schema": tpl.Schema()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": items})
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	tpl, err := template.Lookup(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "schema": tpl.Schema()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	services := map[string]string{"store": "ok", "templates": "ok"}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"version":   Version,
		"services":  services,
	})
}
