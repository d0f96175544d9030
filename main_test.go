package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ms-volunteer/internal/auth"
	"ms-volunteer/internal/checkin"
	"ms-volunteer/internal/checkin/checkin_api"
	"ms-volunteer/internal/database"
	"ms-volunteer/internal/models"
	"ms-volunteer/internal/registrations/db"
	"ms-volunteer/internal/registrations/registration_api"
	"ms-volunteer/internal/registrations/service"
	"ms-volunteer/internal/sse"
	qr "ms-volunteer/internal/tickets/qr_generator"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	testSecret     = "router-test-secret"
	testRolesClaim = "realm_access.roles"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func buildTestRouter(t *testing.T) http.Handler {
	ctx := context.Background()
	sqldb, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })
	require.NoError(t, database.CreateSchema(ctx, bunDB))

	store := &db.DB{Bun: bunDB}
	registrationService := service.NewRegistrationService(store, nil, nil, qr.NewQRGenerator(128), nil)
	emitter := sse.NewScanEventEmitter()
	sessions := checkin.NewController(checkin.NewVerifier(store, nil, nil), checkin.NewLocalGate(), emitter, 0, nil)

	return newRouter(
		nil,
		auth.NewHMACVerifier(testSecret, testRolesClaim),
		registration_api.NewHandler(registrationService, nil),
		checkin_api.NewHandler(sessions, nil),
		checkin_api.NewSSEHandler(nil, emitter),
	)
}

func token(t *testing.T, userID string, role models.Role) string {
	tok, err := auth.SignHMAC(testSecret, userID, []models.Role{role}, testRolesClaim, time.Hour)
	require.NoError(t, err)
	return tok
}

func call(t *testing.T, h http.Handler, tok, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestHealthzIsPublic(t *testing.T) {
	router := buildTestRouter(t)

	rec, env := call(t, router, "", http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}

func TestAPIRequiresBearerToken(t *testing.T) {
	router := buildTestRouter(t)

	rec, _ := call(t, router, "", http.MethodGet, "/api/me/registrations", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterThenCheckIn(t *testing.T) {
	router := buildTestRouter(t)
	volunteer := token(t, "U1", models.RoleUser)
	operator := token(t, "M1", models.RoleModerator)

	rec, env := call(t, router, volunteer, http.MethodPost, "/api/events/E1/registrations", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var reg models.Registration
	require.NoError(t, json.Unmarshal(env.Data, &reg))

	rec, env = call(t, router, volunteer, http.MethodGet, "/api/registrations/"+reg.RegistrationID+"/ticket", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var ticket struct {
		Payload string `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &ticket))

	// volunteers cannot run check-in
	rec, _ = call(t, router, volunteer, http.MethodPost, "/api/checkin/sessions", map[string]string{"event_id": "E1"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = call(t, router, operator, http.MethodPost, "/api/checkin/sessions", map[string]string{"event_id": "E1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var session struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &session))

	scanPath := "/api/checkin/sessions/" + session.SessionID + "/scans"
	rec, env = call(t, router, operator, http.MethodPost, scanPath, map[string]string{"payload": ticket.Payload})
	require.Equal(t, http.StatusOK, rec.Code)
	var result models.ScanResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, models.OutcomeAccepted, result.Outcome)

	rec, _ = call(t, router, operator, http.MethodPost, scanPath, map[string]string{"payload": ticket.Payload})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = call(t, router, operator, http.MethodPost, "/api/checkin/sessions/"+session.SessionID+"/ack", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = call(t, router, operator, http.MethodPost, scanPath, map[string]string{"payload": ticket.Payload})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, models.OutcomeAlreadyAttended, result.Outcome)
}
