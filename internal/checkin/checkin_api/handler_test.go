package checkin_api_test

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ms-volunteer/internal/auth"
	"ms-volunteer/internal/checkin"
	"ms-volunteer/internal/checkin/checkin_api"
	"ms-volunteer/internal/database"
	"ms-volunteer/internal/models"
	"ms-volunteer/internal/registrations/db"
	"ms-volunteer/internal/sse"
	"ms-volunteer/internal/tickets/codec"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	secret     = "checkin-test-secret"
	rolesClaim = "realm_access.roles"
)

type fixture struct {
	router   http.Handler
	store    *db.DB
	operator string
	payload  string
}

func setup(t *testing.T) *fixture {
	ctx := context.Background()
	sqldb, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })
	require.NoError(t, database.CreateSchema(ctx, bunDB))

	store := &db.DB{Bun: bunDB}
	reg := &models.Registration{RegistrationID: "R1", UserID: "U1", EventID: "E1"}
	require.NoError(t, store.Insert(ctx, reg))
	payload, err := codec.Encode(reg)
	require.NoError(t, err)

	emitter := sse.NewScanEventEmitter()
	controller := checkin.NewController(checkin.NewVerifier(store, nil, nil), checkin.NewLocalGate(), emitter, 0, nil)
	h := checkin_api.NewHandler(controller, nil)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(auth.NewHMACVerifier(secret, rolesClaim), nil))
		h.Mount(r, checkin_api.NewSSEHandler(nil, emitter))
	})

	operator, err := auth.SignHMAC(secret, "op-1", []models.Role{models.RoleModerator}, rolesClaim, time.Hour)
	require.NoError(t, err)
	return &fixture{router: r, store: store, operator: operator, payload: payload}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	return f.doAs(t, f.operator, method, path, body)
}

func (f *fixture) doAs(t *testing.T, tok, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(data))
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func data(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, v))
}

func openSession(t *testing.T, f *fixture, eventID string) string {
	rec := f.do(t, http.MethodPost, "/api/checkin/sessions", map[string]string{"event_id": eventID})
	require.Equal(t, http.StatusCreated, rec.Code)
	var session checkin.Session
	data(t, rec, &session)
	require.NotEmpty(t, session.ID)
	return session.ID
}

func TestScanFlow(t *testing.T) {
	f := setup(t)
	id := openSession(t, f, "E1")
	scans := "/api/checkin/sessions/" + id + "/scans"

	rec := f.do(t, http.MethodPost, scans, map[string]string{"payload": f.payload})
	require.Equal(t, http.StatusOK, rec.Code)
	var result models.ScanResult
	data(t, rec, &result)
	assert.Equal(t, models.OutcomeAccepted, result.Outcome)
	assert.Equal(t, "U1", result.UserID)

	rec = f.do(t, http.MethodPost, scans, map[string]string{"payload": f.payload})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/checkin/sessions/"+id+"/ack", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, scans, map[string]string{"payload": f.payload})
	require.Equal(t, http.StatusOK, rec.Code)
	data(t, rec, &result)
	assert.Equal(t, models.OutcomeAlreadyAttended, result.Outcome)

	f.do(t, http.MethodPost, "/api/checkin/sessions/"+id+"/ack", nil)
	rec = f.do(t, http.MethodPost, scans, map[string]string{"payload": "{broken"})
	require.Equal(t, http.StatusOK, rec.Code)
	data(t, rec, &result)
	assert.Equal(t, models.OutcomeInvalid, result.Outcome)
	assert.Equal(t, models.ReasonMalformedTicket, result.Reason)

	rec = f.do(t, http.MethodDelete, "/api/checkin/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, scans, map[string]string{"payload": f.payload})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWrongEventSession(t *testing.T) {
	f := setup(t)
	id := openSession(t, f, "E2")

	rec := f.do(t, http.MethodPost, "/api/checkin/sessions/"+id+"/scans", map[string]string{"payload": f.payload})
	require.Equal(t, http.StatusOK, rec.Code)
	var result models.ScanResult
	data(t, rec, &result)
	assert.Equal(t, models.OutcomeWrongEvent, result.Outcome)
	assert.Equal(t, "E1", result.TicketEventID)

	stored, err := f.store.FindByRegistrationID(context.Background(), "R1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRegistered, stored.Status)
}

func TestCheckinRequiresOperator(t *testing.T) {
	f := setup(t)
	volunteer, err := auth.SignHMAC(secret, "U1", []models.Role{models.RoleUser}, rolesClaim, time.Hour)
	require.NoError(t, err)

	rec := f.doAs(t, volunteer, http.MethodPost, "/api/checkin/sessions", map[string]string{"event_id": "E1"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOpenSessionValidation(t *testing.T) {
	f := setup(t)

	rec := f.do(t, http.MethodPost, "/api/checkin/sessions", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/checkin/sessions", strings.NewReader("not json"))
	req.Header.Set("Authorization", "Bearer "+f.operator)
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/checkin/sessions/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScanFeedStreamsResults(t *testing.T) {
	f := setup(t)
	server := httptest.NewServer(f.router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/checkin/events/E1/feed", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+f.operator)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		var name, payload string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				payload = strings.TrimPrefix(line, "data: ")
			case line == "" && name != "":
				return name, payload
			}
		}
	}

	name, _ := readEvent()
	require.Equal(t, "connected", name)

	id := openSession(t, f, "E1")
	rec := f.do(t, http.MethodPost, "/api/checkin/sessions/"+id+"/scans", map[string]string{"payload": f.payload})
	require.Equal(t, http.StatusOK, rec.Code)

	name, payload := readEvent()
	require.Equal(t, "scan", name)
	var event models.ScanEvent
	require.NoError(t, json.Unmarshal([]byte(payload), &event))
	assert.Equal(t, id, event.SessionID)
	assert.Equal(t, models.OutcomeAccepted, event.Result.Outcome)
}
