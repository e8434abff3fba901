package web_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/playbook/pkg/mocks"
	"github.com/dukex/playbook/pkg/models"
	"github.com/dukex/playbook/pkg/persistence"
	"github.com/dukex/playbook/pkg/persistence/file"
	"github.com/dukex/playbook/pkg/services"
	"github.com/dukex/playbook/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) (*fiber.App, *services.Workflow) {
	t.Helper()

	p, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	workflowService := services.NewWorkflow(p)

	return newApp(workflowService), workflowService
}

func newApp(workflowService *services.Workflow) *fiber.App {
	handlers := web.NewAPIHandlers(workflowService, validator.New(validator.WithRequiredStructEnabled()))
	app := fiber.New()

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Put("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Patch("/:id/status", handlers.UpdateWorkflowStatus)

	p := app.Group("/playbooks")
	p.Get("/", handlers.GetPlaybooks)
	p.Post("/", handlers.CreatePlaybook)
	p.Get("/:id", handlers.GetPlaybook)
	p.Put("/:id", handlers.UpdatePlaybook)

	app.Get("/health", handlers.HealthCheck)

	return app
}

// call sends body (raw when it is a string) and decodes the JSON answer.
func call(t *testing.T, app *fiber.App, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader

	switch value := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(value)
	default:
		payload, err := json.Marshal(value)
		require.NoError(t, err)

		reader = bytes.NewBuffer(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)

	return resp.StatusCode, decoded
}

func createWorkflow(t *testing.T, app *fiber.App, path string, body any) string {
	t.Helper()

	status, response := call(t, app, http.MethodPost, path, body)
	require.Equal(t, http.StatusOK, status, response)
	require.Equal(t, true, response["success"])

	id, ok := response["id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)

	return id
}

func TestAPIHandlers_CreateThenGet(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	id := createWorkflow(t, app, "/workflows", map[string]any{
		"title": "T1",
		"steps": []map[string]any{{"id": 1, "instruction": "do X", "executor": "ai"}},
	})

	status, response := call(t, app, http.MethodGet, "/workflows/"+id, nil)
	require.Equal(t, http.StatusOK, status)

	workflow, ok := response["workflow"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, id, workflow["id"])
	assert.Equal(t, "T1", workflow["title"])
	assert.Equal(t, false, workflow["isRunning"])
	assert.Equal(t, false, workflow["isPlaybook"])
	assert.Nil(t, workflow["playbookSection"])
	assert.Equal(t, "", workflow["playbook_description"])
	assert.Equal(t, workflow["createdAt"], workflow["updatedAt"])

	steps, ok := workflow["steps"].([]any)
	require.True(t, ok)
	require.Len(t, steps, 1)

	step := steps[0].(map[string]any)
	assert.InDelta(t, 1, step["id"], 0)
	assert.Equal(t, "do X", step["instruction"])
	assert.Equal(t, "ai", step["executor"])
	assert.NotContains(t, step, "assignedHuman")
}

func TestAPIHandlers_CreateWorkflow_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		body          any
		expectedError string
	}{
		{name: "invalid JSON", body: "invalid-json", expectedError: "Invalid request body"},
		{name: "empty body", body: "", expectedError: "Invalid request body"},
		{name: "bad step id", body: `{"title":"x","steps":[{"id":true,"executor":"ai"}]}`, expectedError: "Invalid request body"},
		{name: "missing title", body: map[string]any{"steps": []any{}}, expectedError: "Title"},
		{name: "missing steps", body: map[string]any{"title": "x"}, expectedError: "Steps"},
		{
			name:          "unknown executor",
			body:          map[string]any{"title": "x", "steps": []map[string]any{{"id": 1, "instruction": "a", "executor": "robot"}}},
			expectedError: "Executor",
		},
		{
			name:          "unknown section",
			body:          map[string]any{"title": "x", "steps": []any{}, "isPlaybook": true, "playbookSection": "elsewhere"},
			expectedError: "PlaybookSection",
		},
		{
			name: "unknown human",
			body: map[string]any{"title": "x", "steps": []map[string]any{
				{"id": 1, "instruction": "a", "executor": "human", "assignedHuman": "Nobody"},
			}},
			expectedError: "unknown assignee",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app, _ := setupTestApp(t)

			status, response := call(t, app, http.MethodPost, "/workflows", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, false, response["success"])
			assert.Contains(t, response["error"], tt.expectedError)

			problem, ok := response["problem"].(map[string]any)
			require.True(t, ok)
			assert.InDelta(t, http.StatusBadRequest, problem["status"], 0)
			assert.Equal(t, "/workflows", problem["instance"])
		})
	}
}

func TestAPIHandlers_GetWorkflow_NotFound(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	status, response := call(t, app, http.MethodGet, "/workflows/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Workflow not found", response["error"])

	status, response = call(t, app, http.MethodGet, "/playbooks/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Playbook not found", response["error"])
}

func TestAPIHandlers_UpdateWorkflowStatus(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	id := createWorkflow(t, app, "/workflows", map[string]any{
		"title": "Status",
		"steps": []map[string]any{{"id": 1, "instruction": "call", "executor": "human"}},
	})

	status, response := call(t, app, http.MethodPatch, "/workflows/"+id+"/status", map[string]any{"isRunning": true})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, response["success"])

	_, response = call(t, app, http.MethodGet, "/workflows/"+id, nil)
	workflow := response["workflow"].(map[string]any)
	assert.Equal(t, true, workflow["isRunning"])
	assert.Equal(t, "Status", workflow["title"])
	assert.NotEqual(t, workflow["createdAt"], workflow["updatedAt"])

	step := workflow["steps"].([]any)[0].(map[string]any)
	assert.Equal(t, models.DefaultHuman, step["assignedHuman"])
}

func TestAPIHandlers_UpdateWorkflowStatus_Errors(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	status, response := call(t, app, http.MethodPatch, "/workflows/missing/status", map[string]any{"isRunning": true})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Workflow not found", response["error"])

	status, response = call(t, app, http.MethodPatch, "/workflows/missing/status", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "isRunning is required", response["error"])

	status, _ = call(t, app, http.MethodPatch, "/workflows/missing/status", `{"isRunning":"yes"}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPIHandlers_UpdateWorkflow(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	id := createWorkflow(t, app, "/workflows", map[string]any{
		"title": "Original",
		"steps": []map[string]any{{"id": "a", "instruction": "first", "executor": "ai"}},
	})

	status, response := call(t, app, http.MethodPut, "/workflows/"+id, map[string]any{
		"steps": []map[string]any{
			{"id": "b", "instruction": "second", "executor": "human", "assignedHuman": models.HumanJasonMao},
			{"id": "a", "instruction": "first", "executor": "ai"},
		},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, response["success"])

	_, response = call(t, app, http.MethodGet, "/workflows/"+id, nil)
	workflow := response["workflow"].(map[string]any)
	assert.Equal(t, "Original", workflow["title"])

	steps := workflow["steps"].([]any)
	require.Len(t, steps, 2)
	assert.Equal(t, "b", steps[0].(map[string]any)["id"])
	assert.Equal(t, models.HumanJasonMao, steps[0].(map[string]any)["assignedHuman"])
	assert.Equal(t, "a", steps[1].(map[string]any)["id"])
}

func TestAPIHandlers_UpdateWorkflow_Errors(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	status, response := call(t, app, http.MethodPut, "/workflows/missing", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Workflow not found", response["error"])

	status, _ = call(t, app, http.MethodPut, "/workflows/missing", map[string]any{"title": ""})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodPut, "/workflows/missing", "{")
	assert.Equal(t, http.StatusBadRequest, status)

	status, response = call(t, app, http.MethodPut, "/playbooks/missing", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Playbook not found", response["error"])
}

func TestAPIHandlers_DeleteWorkflow(t *testing.T) {
	t.Parallel()

	app, workflowService := setupTestApp(t)

	id := createWorkflow(t, app, "/workflows", map[string]any{"title": "Bye", "steps": []any{}})

	status, response := call(t, app, http.MethodDelete, "/workflows/"+id, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, response["success"])

	_, err := workflowService.FetchByID(t.Context(), id)
	assert.ErrorIs(t, err, services.ErrWorkflowNotFound)

	status, response = call(t, app, http.MethodDelete, "/workflows/"+id, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, false, response["success"])
	assert.Equal(t, "Workflow not found", response["error"])
}

func TestAPIHandlers_ListPartition(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	workflowID := createWorkflow(t, app, "/workflows", map[string]any{"title": "W", "steps": []any{}})
	playbookID := createWorkflow(t, app, "/playbooks", map[string]any{
		"title":                "P",
		"steps":                []any{},
		"playbookSection":      "deals-drop-off",
		"playbook_description": "keep momentum",
	})
	flaggedID := createWorkflow(t, app, "/workflows", map[string]any{"title": "P2", "steps": []any{}, "isPlaybook": true})

	status, response := call(t, app, http.MethodGet, "/workflows", nil)
	require.Equal(t, http.StatusOK, status)

	workflows := response["workflows"].([]any)
	require.Len(t, workflows, 1)
	assert.Equal(t, workflowID, workflows[0].(map[string]any)["id"])

	status, response = call(t, app, http.MethodGet, "/playbooks", nil)
	require.Equal(t, http.StatusOK, status)

	playbooks := response["playbooks"].([]any)
	require.Len(t, playbooks, 2)
	assert.Equal(t, flaggedID, playbooks[0].(map[string]any)["id"])
	assert.Nil(t, playbooks[0].(map[string]any)["playbookSection"])
	assert.Equal(t, playbookID, playbooks[1].(map[string]any)["id"])
	assert.Equal(t, "deals-drop-off", playbooks[1].(map[string]any)["playbookSection"])
	assert.Equal(t, "keep momentum", playbooks[1].(map[string]any)["playbook_description"])

	for _, playbook := range playbooks {
		assert.Equal(t, true, playbook.(map[string]any)["isPlaybook"])
	}
}

func TestAPIHandlers_EmptyLists(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	status, response := call(t, app, http.MethodGet, "/workflows", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{}, response["workflows"])

	status, response = call(t, app, http.MethodGet, "/playbooks", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{}, response["playbooks"])
}

func TestAPIHandlers_PlaybookRoutes(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	id := createWorkflow(t, app, "/playbooks", map[string]any{
		"title":           "Negotiation",
		"steps":           []map[string]any{{"id": 1, "instruction": "review pricing", "executor": "ai"}},
		"playbookSection": "acv-off-whack",
	})

	status, response := call(t, app, http.MethodPut, "/playbooks/"+id, map[string]any{
		"playbookSection":      "failing-to-close",
		"playbook_description": "moved",
	})
	require.Equal(t, http.StatusOK, status, response)

	status, response = call(t, app, http.MethodGet, "/playbooks/"+id, nil)
	require.Equal(t, http.StatusOK, status)

	playbook := response["playbook"].(map[string]any)
	assert.Equal(t, true, playbook["isPlaybook"])
	assert.Equal(t, "failing-to-close", playbook["playbookSection"])
	assert.Equal(t, "moved", playbook["playbook_description"])
	assert.Equal(t, "Negotiation", playbook["title"])
}

func TestAPIHandlers_PersistenceFailure(t *testing.T) {
	t.Parallel()

	p := mocks.NewMockPersistence()
	p.GetMockWorkflowRepository().
		On("List", mock.Anything, mock.Anything).
		Return(nil, persistence.NewWorkflowError("List", "", errors.New("connection refused")))

	app := newApp(services.NewWorkflow(p))

	status, response := call(t, app, http.MethodGet, "/workflows", nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, false, response["success"])
	assert.Contains(t, response["error"], "connection refused")

	problem, ok := response["problem"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "persistence_error", problem["type"])

	status, _ = call(t, app, http.MethodGet, "/playbooks", nil)
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	status, response := call(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", response["status"])

	p := mocks.NewMockPersistence()
	p.On("HealthCheck", mock.Anything).Return(errors.New("down"))

	status, response = call(t, newApp(services.NewWorkflow(p)), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "unhealthy", response["status"])
}
