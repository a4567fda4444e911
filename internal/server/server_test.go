package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"anoa.com/volunteergoals/internal/bootstrap"
	"anoa.com/volunteergoals/internal/config"
	"anoa.com/volunteergoals/pkg/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupServer(t *testing.T) *Server {
	t.Helper()
	db, err := database.Connect(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()), false)
	require.NoError(t, err)
	require.NoError(t, bootstrap.Migrate(db))
	require.NoError(t, bootstrap.SeedAdminUser(db, "admin@volunteer.org", "admin12345"))

	cfg := &config.Config{
		AppEnv:                  "test",
		AllowedOrigins:          "http://localhost:3000",
		JWTSecret:               "test-secret",
		JWTTTL:                  time.Hour,
		WeeklyProcessorSchedule: "0 0 * * 0",
		LoginRateLimitAttempts:  5,
		LoginRateLimitWindow:    time.Minute,
	}
	srv, err := NewServer(cfg, db, nil)
	require.NoError(t, err)
	return srv
}

func do(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func login(t *testing.T, srv *Server, email, password string) string {
	t.Helper()
	w := do(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res.AccessToken
}

func TestVolunteerGoalFlow(t *testing.T) {
	srv := setupServer(t)

	w := do(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     "Rina",
		"email":    "rina@example.org",
		"password": "volunteer1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	token := login(t, srv, "rina@example.org", "volunteer1")

	today := time.Now().UTC()
	w = do(t, srv, http.MethodPost, "/api/goals", token, map[string]any{
		"title":      "Plant trees",
		"start_date": today.Format("2006-01-02"),
		"due_date":   today.AddDate(0, 0, 14).Format("2006-01-02"),
		"tags":       []string{"Environment"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Data struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "pending", created.Data.Status)

	w = do(t, srv, http.MethodPatch, "/api/goals/"+created.Data.ID+"/progress", token, map[string]any{"progress": 100})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var progressed struct {
		Data struct {
			Status   string `json:"status"`
			Progress int    `json:"progress"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &progressed))
	assert.Equal(t, "completed", progressed.Data.Status)
	assert.Equal(t, 100, progressed.Data.Progress)

	w = do(t, srv, http.MethodGet, "/api/goals", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data []json.RawMessage `json:"data"`
		Meta struct {
			TotalItems int64 `json:"total_items"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, int64(1), list.Meta.TotalItems)

	w = do(t, srv, http.MethodGet, "/api/admin/dashboard", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := setupServer(t)

	w := do(t, srv, http.MethodGet, "/api/goals", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, srv, http.MethodGet, "/api/goals", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminCanRunWeeklyProcessing(t *testing.T) {
	srv := setupServer(t)
	token := login(t, srv, "admin@volunteer.org", "admin12345")

	w := do(t, srv, http.MethodPost, "/api/admin/weekly-processing/run", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, srv, http.MethodGet, "/api/admin/dashboard", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var dashboard struct {
		Data struct {
			TotalUsers int64 `json:"total_users"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dashboard))
	assert.Equal(t, int64(1), dashboard.Data.TotalUsers)
}

func TestScheduledJobIsRegistered(t *testing.T) {
	srv := setupServer(t)
	assert.Contains(t, srv.scheduler.Jobs(), "weekly-goal-processing")
}
