package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-treatment-board/internal/config"
	"github.com/iliyamo/clinic-treatment-board/internal/handler"
	"github.com/iliyamo/clinic-treatment-board/internal/metrics"
	"github.com/iliyamo/clinic-treatment-board/internal/model"
	"github.com/iliyamo/clinic-treatment-board/internal/service"
	"github.com/iliyamo/clinic-treatment-board/internal/utils"
	"github.com/iliyamo/clinic-treatment-board/internal/websocket"
)

const secret = "router-secret"

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	m := metrics.New()
	board := service.NewBoard(model.DefaultState(2), service.Deps{Metrics: m})
	bh := handler.NewBoardHandler(board, nil, time.UTC)
	hub := websocket.NewHub(m, zap.NewNop())
	d := Deps{
		Board:     bh,
		Auth:      handler.NewAuthHandler(config.Config{JWTSecret: secret, AccessTTLMin: 5}),
		Viewers:   websocket.NewHandler(hub, board.Observe),
		Metrics:   m.Handler(),
		JWTSecret: secret,
	}
	e := echo.New()
	RegisterRoutes(e, d)
	RegisterBoard(e, d)
	return e
}

func do(e *echo.Echo, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(""))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func token(t *testing.T, role string) string {
	t.Helper()
	at, err := utils.NewAccessToken(secret, "tester", role, 5)
	require.NoError(t, err)
	return at.Token
}

func TestPublicRoutes(t *testing.T) {
	e := newServer(t)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/healthz", "").Code)

	rec := do(e, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "clinic_")
}

func TestBoardRoutesRequireToken(t *testing.T) {
	e := newServer(t)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/v1/state", "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/v1/state", token(t, utils.RoleStaff)).Code)
	assert.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/v1/bays", token(t, utils.RoleStaff)).Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodPatch, "/v1/waiting/x", "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodPatch, "/v1/waiting/x", token(t, utils.RoleStaff)).Code)
}

func TestReleaseIsDirectorOnly(t *testing.T) {
	e := newServer(t)
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodPost, "/v1/director/x/release", token(t, utils.RoleStaff)).Code)

	rec := do(e, http.MethodPost, "/v1/director/x/release", token(t, utils.RoleDirector))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"applied":false`)
}
