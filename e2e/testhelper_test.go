package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/playbookpilot/api/internal/client"
	"github.com/playbookpilot/api/internal/config"
	"github.com/playbookpilot/api/internal/handler"
	"github.com/playbookpilot/api/internal/middleware"
	"github.com/playbookpilot/api/internal/notify"
	"github.com/playbookpilot/api/internal/queue"
	"github.com/playbookpilot/api/internal/service"
	"github.com/playbookpilot/api/internal/store"
	"github.com/playbookpilot/api/internal/worker"
)

const testJWTSecret = "test-secret-for-e2e"

// testApp holds all components needed for testing
type testApp struct {
	app   *fiber.App
	queue *queue.MemoryQueue
	auth  *middleware.AuthMiddleware
}

// setupApp builds the same route surface as main.go, backed by in-memory
// stores, an in-memory queue and a stubbed generation service. Draining the
// queue runs the workers inline, so a full enqueue-to-result flow needs no
// Redis and no goroutines.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	// Stubbed generation service
	stub := httptest.NewServer(http.HandlerFunc(generatorStub))
	t.Cleanup(stub.Close)
	generatorClient := client.NewGeneratorClient(&config.GeneratorConfig{
		BaseURL:        stub.URL,
		TimeoutSeconds: 5,
	})

	// In-memory infrastructure
	jobStore := store.NewMemoryJobStore()
	executionStore := store.NewMemoryExecutionStore()
	playbookStore := store.NewMemoryPlaybookStore()
	memQueue := queue.NewMemoryQueue()
	t.Cleanup(func() { memQueue.Close() })

	hub := notify.NewHub()
	go hub.Run()

	validate := validator.New()

	jobService := service.NewJobService(jobStore, executionStore, playbookStore, memQueue, hub)
	playbookService := service.NewPlaybookService(playbookStore)

	playbookHandler := handler.NewPlaybookHandler(jobService, playbookService, validate)
	jobHandler := handler.NewJobHandler(jobService)

	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret)

	// Workers run inline when the memory queue is drained
	memQueue.Register(service.TaskTypeGenerate, worker.NewGenerateWorker(jobStore, playbookStore, generatorClient, hub))
	memQueue.Register(service.TaskTypeValidate, worker.NewValidateWorker(jobStore, playbookStore, generatorClient, hub))
	memQueue.Register(service.TaskTypeLint, worker.NewLintWorker(jobStore, playbookStore, generatorClient, hub))
	memQueue.Register(service.TaskTypeExecute, worker.NewExecuteWorker(jobStore, executionStore, playbookStore, generatorClient, hub))
	memQueue.Register(service.TaskTypeRefine, worker.NewRefineWorker(jobStore, playbookStore, generatorClient, hub))

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Same routes as main.go, without rate limiting so tests never get blocked
	api := app.Group("/api", authMiddleware.Authenticate())

	playbooks := api.Group("/playbooks")
	playbooks.Post("/generate", playbookHandler.Generate)
	playbooks.Get("/:id", playbookHandler.Get)
	playbooks.Post("/:id/validate", playbookHandler.Validate)
	playbooks.Post("/:id/lint", playbookHandler.Lint)
	playbooks.Post("/:id/execute", playbookHandler.Execute)
	playbooks.Post("/:id/refine", playbookHandler.Refine)

	jobs := api.Group("/jobs")
	jobs.Get("/:jobId", jobHandler.Status)
	jobs.Get("/:jobId/result", jobHandler.Result)
	jobs.Post("/:jobId/cancel", jobHandler.Cancel)

	executions := api.Group("/executions")
	executions.Get("/:id", jobHandler.Execution)
	executions.Post("/:id/cancel", jobHandler.CancelExecution)

	return &testApp{app: app, queue: memQueue, auth: authMiddleware}
}

// generatorStub answers the generation service endpoints with canned bodies.
func generatorStub(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/generate":
		json.NewEncoder(w).Encode(map[string]interface{}{
			"content":      "---\n- hosts: all\n  tasks:\n    - name: install docker\n",
			"content_type": "playbook",
			"validation":   map[string]interface{}{"valid": true, "errors": []string{}},
		})
	case "/validate":
		json.NewEncoder(w).Encode(map[string]interface{}{
			"valid":        true,
			"yaml_valid":   true,
			"syntax_valid": true,
			"errors":       []string{},
			"warnings":     []string{},
		})
	case "/lint":
		json.NewEncoder(w).Encode(map[string]interface{}{
			"passed":  true,
			"issues":  []interface{}{},
			"summary": "no issues",
		})
	case "/execute":
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":          true,
			"output":           "PLAY RECAP: ok=1",
			"duration_seconds": 1.0,
		})
	default:
		http.NotFound(w, r)
	}
}

// generateToken creates a JWT token for test requests.
func generateToken(t *testing.T, ta *testApp) string {
	t.Helper()
	token, err := ta.auth.GenerateToken("test-user-123", "test@example.com")
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return token
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, ta *testApp, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t, ta)
	return doRequest(ta.app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus fails the test if the response status does not match.
func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d", want, resp.StatusCode)
	}
}

// drain runs all queued tasks inline.
func drain(t *testing.T, ta *testApp) {
	t.Helper()
	if err := ta.queue.Drain(context.Background()); err != nil {
		t.Fatalf("failed to drain queue: %v", err)
	}
}
