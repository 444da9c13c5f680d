package api

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/luckeedao/votecore/pkg/commitment"
	"github.com/luckeedao/votecore/pkg/engine"
	"github.com/luckeedao/votecore/pkg/model"
	"github.com/luckeedao/votecore/pkg/store"
)

func newTestServer() *Server {
	s := store.NewMemory()
	e := engine.New(s)
	return NewServer(e, s, zap.NewNop())
}

func TestCreateAndGetVote(t *testing.T) {
	srv := newTestServer()

	body, _ := json.Marshal(map[string]any{
		"config": model.Config{
			Title: "t", Description: "d", TemplateID: "yes_no", Creator: "alice",
			CommitmentDuration: time.Hour, RevealDuration: time.Hour,
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/votes", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	voteID, _ := created["vote_id"].(string)
	require.NotEmpty(t, voteID)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/votes/"+voteID, nil)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetVoteNotFoundReturns404(t *testing.T) {
	srv := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/votes/nope", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCommitConflictReturns409(t *testing.T) {
	srv := newTestServer()

	voteID, err := srv.Engine.Create(context.Background(), model.Config{
		Title: "t", Description: "d", TemplateID: "yes_no", Creator: "alice",
		CommitmentDuration: time.Hour, RevealDuration: time.Hour,
	})
	require.NoError(t, err)

	algo, _ := commitment.Lookup("sha256")
	hash := commitment.Commit(algo, []byte("yes"), []byte("sA"))
	saltHex := hex.EncodeToString([]byte("sA"))

	commitBody, _ := json.Marshal(map[string]any{"voter": "A", "commitment_hash": hash, "salt": saltHex})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/votes/"+voteID+"/commit", bytes.NewReader(commitBody))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/votes/"+voteID+"/commit", bytes.NewReader(commitBody))
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestListTemplatesEndpoint(t *testing.T) {
	srv := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/templates", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
