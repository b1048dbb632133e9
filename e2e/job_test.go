package e2e

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
)

func TestJobStatus_NotFound(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta, http.MethodGet, "/api/jobs/"+uuid.New().String(), "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusNotFound)
}

func TestJobResult_NotReady(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta, http.MethodPost, "/api/playbooks/generate",
		`{"prompt": "install docker on all hosts"}`)
	if err != nil {
		t.Fatalf("generate request failed: %v", err)
	}
	jobID := parseJSON(t, resp)["jobId"].(string)

	// Queue not drained, job still queued
	resp, err = doAuthRequest(t, ta, http.MethodGet, "/api/jobs/"+jobID+"/result", "")
	if err != nil {
		t.Fatalf("result request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)
}

func TestJobCancel_QueuedJob(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta, http.MethodPost, "/api/playbooks/generate",
		`{"prompt": "install docker on all hosts"}`)
	if err != nil {
		t.Fatalf("generate request failed: %v", err)
	}
	jobID := parseJSON(t, resp)["jobId"].(string)

	resp, err = doAuthRequest(t, ta, http.MethodPost, "/api/jobs/"+jobID+"/cancel", "")
	if err != nil {
		t.Fatalf("cancel request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["success"] != true {
		t.Errorf("expected success, got %v", result["success"])
	}
	if result["status"] != "cancelled" {
		t.Errorf("expected cancelled, got %v", result["status"])
	}

	// The still-queued task message is dropped, not retried
	drain(t, ta)

	resp, err = doAuthRequest(t, ta, http.MethodGet, "/api/jobs/"+jobID, "")
	if err != nil {
		t.Fatalf("status request failed: %v", err)
	}
	status := parseJSON(t, resp)
	if status["status"] != "cancelled" {
		t.Errorf("cancelled job must stay cancelled after drain, got %v", status["status"])
	}
}

func TestJobCancel_AlreadyFinished(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta, http.MethodPost, "/api/playbooks/generate",
		`{"prompt": "install docker on all hosts"}`)
	if err != nil {
		t.Fatalf("generate request failed: %v", err)
	}
	jobID := parseJSON(t, resp)["jobId"].(string)
	drain(t, ta)

	resp, err = doAuthRequest(t, ta, http.MethodPost, "/api/jobs/"+jobID+"/cancel", "")
	if err != nil {
		t.Fatalf("cancel request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)
}

func TestExecutionCancel_PropagatesFromJob(t *testing.T) {
	ta := setupApp(t)

	// Generate, then queue an execute without draining it
	resp, err := doAuthRequest(t, ta, http.MethodPost, "/api/playbooks/generate",
		`{"prompt": "install docker on all hosts"}`)
	if err != nil {
		t.Fatalf("generate request failed: %v", err)
	}
	generateJobID := parseJSON(t, resp)["jobId"].(string)
	drain(t, ta)

	resp, err = doAuthRequest(t, ta, http.MethodGet, "/api/jobs/"+generateJobID, "")
	if err != nil {
		t.Fatalf("status request failed: %v", err)
	}
	playbookID := parseJSON(t, resp)["playbookId"].(string)

	resp, err = doAuthRequest(t, ta, http.MethodPost, "/api/playbooks/"+playbookID+"/execute",
		`{"inventory": "[web]\nhost1\n"}`)
	if err != nil {
		t.Fatalf("execute request failed: %v", err)
	}
	queued := parseJSON(t, resp)
	executeJobID := queued["jobId"].(string)
	executionID := queued["executionId"].(string)

	resp, err = doAuthRequest(t, ta, http.MethodPost, "/api/jobs/"+executeJobID+"/cancel", "")
	if err != nil {
		t.Fatalf("cancel request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	resp, err = doAuthRequest(t, ta, http.MethodGet, "/api/executions/"+executionID, "")
	if err != nil {
		t.Fatalf("execution request failed: %v", err)
	}
	execution := parseJSON(t, resp)
	if execution["status"] != "cancelled" {
		t.Errorf("expected cancelled execution, got %v", execution["status"])
	}
}
