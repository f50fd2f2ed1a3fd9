package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZertGraf/gerrit-automerge/internal/api/handler"
	"github.com/ZertGraf/gerrit-automerge/internal/domain"
	"github.com/ZertGraf/gerrit-automerge/internal/pkg/logger"
	"github.com/ZertGraf/gerrit-automerge/internal/repository"
)

type panicDispatcher struct{}

func (panicDispatcher) Dispatch(context.Context, *domain.Event) error {
	panic("handler exploded")
}

func testRouter(t *testing.T, health HealthFunc, dispatcher handler.EventDispatcher) http.Handler {
	t.Helper()

	log := logger.NewDiscard()
	cfg := &ServerConfig{Port: 8081, ReadTimeout: time.Second, WriteTimeout: time.Second, RequestTimeout: time.Second}

	return setupRouter(cfg,
		handler.NewWebhookHandler(dispatcher, log),
		handler.NewDecisionHandler(repository.NewDisabledDecisions(log), log),
		health,
		log,
	)
}

func TestRouter_Health(t *testing.T) {
	healthy := testRouter(t, func(context.Context) error { return nil }, panicDispatcher{})
	rec := httptest.NewRecorder()
	healthy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	broken := testRouter(t, func(context.Context) error { return errors.New("gerrit down") }, panicDispatcher{})
	rec = httptest.NewRecorder()
	broken.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unhealthy"}`, rec.Body.String())
}

func TestRouter_Routes(t *testing.T) {
	router := testRouter(t, func(context.Context) error { return nil }, panicDispatcher{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/decisions", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"decisions":[]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"type":"change-merged"}`)))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_RecoversPanics(t *testing.T) {
	router := testRouter(t, func(context.Context) error { return nil }, panicDispatcher{})

	body := `{"type":"patchset-created","change":{"project":"p","number":1}}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), string(handler.CodeInternal))
}

func TestServerConfig_Validate(t *testing.T) {
	cfg := ServerConfig{Port: 8081, ReadTimeout: time.Second, WriteTimeout: time.Second, RequestTimeout: time.Minute}
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.Port = 70000
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.RequestTimeout = 0
	assert.Error(t, bad.Validate())
}
