package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/planforge/sprint-planner/internal/handler"
	"github.com/planforge/sprint-planner/internal/infrastructure/postgres"
	"github.com/planforge/sprint-planner/internal/usecase/capacity"
	"github.com/planforge/sprint-planner/internal/usecase/sprint"
	"github.com/planforge/sprint-planner/pkg/logger"
)

func TestHTTPFlow(t *testing.T) {
	requireDocker(t)
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "sprint_planner",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections"),
			wait.ForListeningPort("5432/tcp"),
		).WithDeadline(60 * time.Second),
	}

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://postgres:postgres@%s:%s/sprint_planner?sslmode=disable", host, port.Port())

	require.Eventually(t, func() bool {
		pool, err := postgres.NewPool(ctx, dsn)
		if err != nil {
			return false
		}
		pool.Close()
		return true
	}, time.Minute, time.Second)

	pool, err := postgres.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		pool.Close()
	})

	require.NoError(t, postgres.RunMigrations(ctx, pool))

	log := logger.New()
	repo := postgres.NewPostgresRepository(pool, log)
	uc := sprint.New(repo, log)
	apiToken := "planner-secret"
	defaults := capacity.Options{SprintDurationDays: 10, BufferPercentage: 20}
	server := handler.New(uc, repo, apiToken, defaults, log)
	ts := httptest.NewServer(server.Router())
	t.Cleanup(func() {
		ts.Close()
	})
	client := &http.Client{Timeout: 15 * time.Second}

	t.Run("rejects missing token", func(t *testing.T) {
		resp := doRequest(t, client, ts.URL+"/capacity", http.MethodGet, nil, "")
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	createDeveloper := func(id, name string, velocity float64, strengths, preferred []string) {
		body := map[string]any{
			"id":                   id,
			"name":                 name,
			"velocity":             velocity,
			"strengths":            strengths,
			"preferred_task_types": preferred,
			"code_quality":         8.0,
			"collaboration":        7.0,
		}
		resp := doRequest(t, client, ts.URL+"/developers", http.MethodPost, body, apiToken)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	createDeveloper("d1", "Alice", 8, []string{"go", "sql"}, []string{"feature"})
	createDeveloper("d2", "Bob", 6, []string{"go"}, []string{"bug"})

	createTask := func(id, title, taskType, priority string, effort float64, points int) {
		body := map[string]any{
			"id":                     id,
			"title":                  title,
			"type":                   taskType,
			"priority":               priority,
			"estimated_effort_hours": effort,
			"story_points":           points,
		}
		resp := doRequest(t, client, ts.URL+"/tasks", http.MethodPost, body, apiToken)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	createTask("t1", "API endpoint", "feature", "high", 10, 5)
	createTask("t2", "Login crash", "bug", "critical", 15, 3)
	createTask("t3", "Cleanup docs", "docs", "low", 30, 2)

	t.Run("duplicate developer conflicts", func(t *testing.T) {
		body := map[string]any{"id": "d1", "name": "Alice again", "velocity": 1}
		resp := doRequest(t, client, ts.URL+"/developers", http.MethodPost, body, apiToken)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusConflict, resp.StatusCode)
		var errorPayload struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&errorPayload))
		require.Equal(t, "DEVELOPER_EXISTS", errorPayload.Error.Code)
	})

	t.Run("capacity plan", func(t *testing.T) {
		resp := doRequest(t, client, ts.URL+"/capacity?duration_days=10&buffer_pct=20", http.MethodGet, nil, apiToken)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var payload struct {
			TotalCapacity     float64 `json:"total_capacity"`
			AvailableCapacity float64 `json:"available_capacity"`
			Health            string  `json:"health"`
			Developers        []struct {
				DeveloperID    string  `json:"developer_id"`
				AvailableHours float64 `json:"available_hours"`
			} `json:"developers"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
		require.InDelta(t, 160, payload.TotalCapacity, 0.001)
		require.InDelta(t, 128, payload.AvailableCapacity, 0.001)
		require.Equal(t, "healthy", payload.Health)
		require.Len(t, payload.Developers, 2)
		for _, dev := range payload.Developers {
			require.InDelta(t, 64, dev.AvailableHours, 0.001)
		}
	})

	var sprintID string
	t.Run("plan sprint with auto assignment", func(t *testing.T) {
		body := map[string]any{
			"name":                 "Sprint 1",
			"start_date":           "2026-08-24",
			"end_date":             "2026-09-07",
			"sprint_duration_days": 10,
			"buffer_percentage":    20,
			"auto_assign":          true,
		}
		resp := doRequest(t, client, ts.URL+"/sprints/plan", http.MethodPost, body, apiToken)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var payload struct {
			Sprint struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"sprint"`
			Prediction struct {
				Probability int `json:"probability"`
			} `json:"prediction"`
			AssignedCount int      `json:"assigned_count"`
			LinkedTaskIDs []string `json:"linked_task_ids"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
		require.NotEmpty(t, payload.Sprint.ID)
		require.Equal(t, "planned", payload.Sprint.Status)
		require.GreaterOrEqual(t, payload.Prediction.Probability, 0)
		require.LessOrEqual(t, payload.Prediction.Probability, 100)
		// All three tasks (55h total) fit into the 128h buffered capacity.
		require.Len(t, payload.LinkedTaskIDs, 3)
		require.Equal(t, 3, payload.AssignedCount)
		sprintID = payload.Sprint.ID
	})

	t.Run("rebalance sprint", func(t *testing.T) {
		resp := doRequest(t, client, ts.URL+"/sprints/"+sprintID+"/rebalance?duration_days=10&buffer_pct=20", http.MethodPost, nil, apiToken)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var payload struct {
			Moves           []json.RawMessage `json:"moves"`
			Recommendations []string          `json:"recommendations"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
		require.NotNil(t, payload.Recommendations)
	})

	t.Run("retrospective for fresh sprint", func(t *testing.T) {
		resp := doRequest(t, client, ts.URL+"/sprints/"+sprintID+"/retrospective", http.MethodGet, nil, apiToken)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var payload struct {
			SprintID         string  `json:"sprint_id"`
			VelocityAchieved int     `json:"velocity_achieved"`
			CompletionRate   float64 `json:"completion_rate"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
		require.Equal(t, sprintID, payload.SprintID)
		require.Equal(t, 0, payload.VelocityAchieved)
		require.InDelta(t, 0, payload.CompletionRate, 0.001)
	})

	t.Run("retrospective for unknown sprint", func(t *testing.T) {
		resp := doRequest(t, client, ts.URL+"/sprints/missing/retrospective", http.MethodGet, nil, apiToken)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("velocity forecast", func(t *testing.T) {
		resp := doRequest(t, client, ts.URL+"/velocity/forecast", http.MethodGet, nil, apiToken)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var payload struct {
			Trend      string  `json:"trend"`
			Confidence float64 `json:"confidence"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
		require.Equal(t, "stable", payload.Trend)
		require.InDelta(t, 0.3, payload.Confidence, 0.001)
	})
}

func doRequest(t *testing.T, client *http.Client, url string, method string, body any, token string) *http.Response {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func requireDocker(t *testing.T) {
	paths := []string{
		"/var/run/docker.sock",
		filepath.Join(os.Getenv("HOME"), ".docker/run/docker.sock"),
	}
	if host := os.Getenv("DOCKER_HOST"); strings.HasPrefix(host, "unix://") {
		paths = append(paths, strings.TrimPrefix(host, "unix://"))
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			conn, dialErr := net.DialTimeout("unix", p, time.Second)
			if dialErr == nil {
				_ = conn.Close()
				return
			}
		}
	}
	t.Skip("docker socket not available")
}
