package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/pilotaja-api/internal/dto"
	"github.com/noah-isme/pilotaja-api/internal/models"
	"github.com/noah-isme/pilotaja-api/pkg/config"
)

const routerSecret = "router-secret"

type apiClient struct {
	t      *testing.T
	router http.Handler
}

type apiResponse struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string                 `json:"code"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

func testConfig() *config.Config {
	return &config.Config{
		Env:            "test",
		APIPrefix:      "/api/v1",
		StorageDriver:  config.StorageMemory,
		RequestTimeout: 5 * time.Second,
		Lock:           config.LockConfig{Driver: config.LockLocal},
		JWT:            config.JWTConfig{Secret: routerSecret},
		Booking: config.BookingConfig{
			DefaultDurationMinutes: 50,
			DefaultTimezone:        "UTC",
		},
	}
}

func newAPIClient(t *testing.T) *apiClient {
	t.Helper()
	app, err := Build(context.Background(), testConfig(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(context.Background()) })
	return &apiClient{t: t, router: NewRouter(app)}
}

func bearer(t *testing.T, userID string, role models.UserRole) string {
	t.Helper()
	claims := models.JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(routerSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func (a *apiClient) do(method, path, token string, body interface{}) (int, apiResponse) {
	a.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(a.t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "text/csv" {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w.Code, resp
}

func TestRouterBookingFlow(t *testing.T) {
	api := newAPIClient(t)
	admin := bearer(t, "admin-1", models.RoleAdmin)

	status, resp := api.do(http.MethodPost, "/api/v1/instructors", admin, map[string]interface{}{
		"fullName":     "Marina Costa",
		"email":        "marina@example.com",
		"hourlyRate":   "80",
		"timezone":     "America/Sao_Paulo",
		"availability": []map[string]interface{}{{"dayOfWeek": 1, "start": "08:00", "end": "12:00"}},
	})
	require.Equal(t, http.StatusCreated, status)
	var instructor models.Instructor
	require.NoError(t, json.Unmarshal(resp.Data, &instructor))

	status, resp = api.do(http.MethodPost, "/api/v1/students", admin, dto.CreateStudentRequest{FullName: "Joao Pereira", Email: "joao@example.com"})
	require.Equal(t, http.StatusCreated, status)
	var student models.Student
	require.NoError(t, json.Unmarshal(resp.Data, &student))

	studentToken := bearer(t, student.ID, models.RoleStudent)
	instructorToken := bearer(t, instructor.ID, models.RoleInstructor)

	book := map[string]interface{}{
		"instructorId": instructor.ID,
		"studentId":    student.ID,
		"startTime":    "2026-10-19T09:00:00-03:00",
	}
	status, resp = api.do(http.MethodPost, "/api/v1/appointments", studentToken, book)
	require.Equal(t, http.StatusCreated, status)
	var appt dto.AppointmentView
	require.NoError(t, json.Unmarshal(resp.Data, &appt))
	assert.Equal(t, "66.67", appt.Price)
	assert.Equal(t, "PENDING", appt.Status)

	status, resp = api.do(http.MethodPost, "/api/v1/appointments", studentToken, book)
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "SLOT_CONFLICT", resp.Error.Code)
	assert.Equal(t, appt.ID, resp.Error.Details["appointmentId"])

	book["startTime"] = "2026-10-19T11:30:00-03:00"
	status, resp = api.do(http.MethodPost, "/api/v1/appointments", studentToken, book)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "OUT_OF_AVAILABILITY", resp.Error.Code)

	status, _ = api.do(http.MethodPatch, "/api/v1/appointments/"+appt.ID+"/status", studentToken, map[string]string{"status": "CONFIRMED"})
	assert.Equal(t, http.StatusForbidden, status)

	for _, next := range []string{"CONFIRMED", "COMPLETED"} {
		status, _ = api.do(http.MethodPatch, "/api/v1/appointments/"+appt.ID+"/status", instructorToken, map[string]string{"status": next})
		require.Equal(t, http.StatusOK, status, next)
	}

	status, resp = api.do(http.MethodPatch, "/api/v1/appointments/"+appt.ID+"/status", instructorToken, map[string]string{"status": "CANCELLED"})
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_TRANSITION", resp.Error.Code)

	status, resp = api.do(http.MethodGet, "/api/v1/instructors/"+instructor.ID, studentToken, nil)
	require.Equal(t, http.StatusOK, status)
	var reloaded models.Instructor
	require.NoError(t, json.Unmarshal(resp.Data, &reloaded))
	assert.Equal(t, 1, reloaded.TotalLessons)

	status, resp = api.do(http.MethodGet, "/api/v1/students/"+student.ID+"/appointments?status=COMPLETED", studentToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, resp.Meta["count"])

	status, _ = api.do(http.MethodGet, "/api/v1/instructors/"+instructor.ID+"/appointments", studentToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = api.do(http.MethodGet, "/api/v1/instructors/"+instructor.ID+"/agenda?format=csv", instructorToken, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestRouterRequiresToken(t *testing.T) {
	api := newAPIClient(t)

	status, resp := api.do(http.MethodGet, "/api/v1/instructors", "", nil)
	require.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)

	status, _ = api.do(http.MethodPost, "/api/v1/students", bearer(t, "stu-1", models.RoleStudent), dto.CreateStudentRequest{FullName: "Ana Ribeiro", Email: "ana@example.com"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = api.do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestBuildRejectsUnknownDrivers(t *testing.T) {
	cfg := testConfig()
	cfg.StorageDriver = "cassandra"
	_, err := Build(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Lock.Driver = "zookeeper"
	_, err = Build(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
