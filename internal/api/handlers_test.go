package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusplatform/orchestrator/internal/domain"
	"github.com/nexusplatform/orchestrator/internal/health"
)

type stubSubs struct {
	sub    *domain.Subscription
	subErr error
	active bool
}

func (s *stubSubs) Subscribe(context.Context, string, string) (*domain.Subscription, error) {
	return s.sub, s.subErr
}

func (s *stubSubs) EnsureActive(context.Context, string, string) (bool, error) {
	return s.active, nil
}

func TestSubscriptionHandler(t *testing.T) {
	t.Parallel()

	t.Run("subscribe returns the record", func(t *testing.T) {
		t.Parallel()

		h := NewSubscriptionHandler(&stubSubs{sub: &domain.Subscription{
			ID:     uuid.New(),
			UserID: "u1",
			ToolID: "sales_bot",
			Status: domain.SubscriptionActive,
		}}, slog.Default())

		req := httptest.NewRequest(http.MethodPost, "/api/subscriptions",
			strings.NewReader(`{"user_id":"u1","tool_id":"sales_bot"}`))
		rec := httptest.NewRecorder()
		h.Subscribe(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var got domain.Subscription
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, domain.SubscriptionActive, got.Status)
	})

	t.Run("insufficient credits is a 402", func(t *testing.T) {
		t.Parallel()

		h := NewSubscriptionHandler(&stubSubs{subErr: domain.ErrInsufficientCredits}, slog.Default())
		req := httptest.NewRequest(http.MethodPost, "/api/subscriptions",
			strings.NewReader(`{"user_id":"u1","tool_id":"sales_bot"}`))
		rec := httptest.NewRecorder()
		h.Subscribe(rec, req)

		assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	})

	t.Run("missing fields is a 400", func(t *testing.T) {
		t.Parallel()

		h := NewSubscriptionHandler(&stubSubs{}, slog.Default())
		req := httptest.NewRequest(http.MethodPost, "/api/subscriptions",
			strings.NewReader(`{"user_id":"u1"}`))
		rec := httptest.NewRecorder()
		h.Subscribe(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("active check", func(t *testing.T) {
		t.Parallel()

		h := NewSubscriptionHandler(&stubSubs{active: true}, slog.Default())
		req := httptest.NewRequest(http.MethodGet,
			"/api/subscriptions/active?user_id=u1&tool_id=sales_bot", nil)
		rec := httptest.NewRecorder()
		h.Active(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var got ActiveResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.True(t, got.Active)
	})
}

type stubTracker struct {
	tracked   []string
	completed []string
}

func (s *stubTracker) Track(userID, _, _ string) { s.tracked = append(s.tracked, userID) }
func (s *stubTracker) Complete(userID string)    { s.completed = append(s.completed, userID) }

func TestCheckoutHandler(t *testing.T) {
	t.Parallel()

	newRouter := func(tracker *stubTracker) http.Handler {
		h := NewCheckoutHandler(tracker, slog.Default())
		r := chi.NewRouter()
		r.Post("/api/checkouts", h.Track)
		r.Delete("/api/checkouts/{user_id}", h.Complete)
		return r
	}

	t.Run("track accepts a session", func(t *testing.T) {
		t.Parallel()

		tracker := &stubTracker{}
		router := newRouter(tracker)
		req := httptest.NewRequest(http.MethodPost, "/api/checkouts",
			strings.NewReader(`{"user_id":"u1","owner":"store-7","recipient":"+55119"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, []string{"u1"}, tracker.tracked)
	})

	t.Run("missing recipient is a 400", func(t *testing.T) {
		t.Parallel()

		tracker := &stubTracker{}
		router := newRouter(tracker)
		req := httptest.NewRequest(http.MethodPost, "/api/checkouts",
			strings.NewReader(`{"user_id":"u1"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, tracker.tracked)
	})

	t.Run("complete drops the session", func(t *testing.T) {
		t.Parallel()

		tracker := &stubTracker{}
		router := newRouter(tracker)
		req := httptest.NewRequest(http.MethodDelete, "/api/checkouts/u1", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, []string{"u1"}, tracker.completed)
	})
}

type stubEngineStatus struct {
	depth      int
	processing bool
}

func (s stubEngineStatus) QueueLen() int    { return s.depth }
func (s stubEngineStatus) Processing() bool { return s.processing }

type stubHealthStatus struct {
	state health.State
}

func (s stubHealthStatus) Snapshot() health.State { return s.state }

func TestStatusHandler(t *testing.T) {
	t.Parallel()

	h := NewStatusHandler(
		stubEngineStatus{depth: 3, processing: true},
		stubHealthStatus{state: health.State{Score: 85, Ready: true, Mode: health.ModeTurbo}},
	)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 85, got.Health)
	assert.Equal(t, 3, got.QueueSize)
	assert.Equal(t, "turbo", got.Mode)
	assert.True(t, got.Ready)
	assert.True(t, got.Processing)
}

type stubRouting struct {
	inst      *domain.MessagingInstance
	reportErr error
	reported  []string
}

func (s *stubRouting) Select(context.Context, domain.InstanceRole, string) (*domain.MessagingInstance, error) {
	return s.inst, nil
}

func (s *stubRouting) ReportFailure(_ context.Context, id string) error {
	s.reported = append(s.reported, id)
	return s.reportErr
}

func TestInstanceHandler(t *testing.T) {
	t.Parallel()

	newRouter := func(routing *stubRouting) http.Handler {
		h := NewInstanceHandler(routing, slog.Default())
		r := chi.NewRouter()
		r.Get("/api/instances/select", h.Select)
		r.Post("/api/instances/{id}/failures", h.ReportFailure)
		return r
	}

	t.Run("select returns the instance", func(t *testing.T) {
		t.Parallel()

		router := newRouter(&stubRouting{inst: &domain.MessagingInstance{ID: "sales-1"}})
		req := httptest.NewRequest(http.MethodGet, "/api/instances/select?role=sales", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var got domain.MessagingInstance
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "sales-1", got.ID)
	})

	t.Run("no instance is a 404", func(t *testing.T) {
		t.Parallel()

		router := newRouter(&stubRouting{})
		req := httptest.NewRequest(http.MethodGet, "/api/instances/select?role=sales", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing role is a 400", func(t *testing.T) {
		t.Parallel()

		router := newRouter(&stubRouting{})
		req := httptest.NewRequest(http.MethodGet, "/api/instances/select", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("failure report is a 204", func(t *testing.T) {
		t.Parallel()

		routing := &stubRouting{}
		router := newRouter(routing)
		req := httptest.NewRequest(http.MethodPost, "/api/instances/sales-1/failures", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, []string{"sales-1"}, routing.reported)
	})

	t.Run("unknown instance is a 404", func(t *testing.T) {
		t.Parallel()

		router := newRouter(&stubRouting{reportErr: domain.ErrInstanceNotFound})
		req := httptest.NewRequest(http.MethodPost, "/api/instances/ghost/failures", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
