package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"jsonpress/internal/api"
	"jsonpress/internal/jobs"
	"jsonpress/internal/logging"
	"jsonpress/internal/testsupport"
)

func startServer(t *testing.T) (*api.Server, *jobs.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	srv := api.NewServer(cfg, store, logging.NewNop())
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("start api: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv, store
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestHealthEndpoint(t *testing.T) {
	srv, store := startServer(t)
	testsupport.NewJob(t, store, jobs.Metadata{ReferenceID: "REF700001"})

	var body struct {
		Status string         `json:"status"`
		Jobs   map[string]int `json:"jobs"`
	}
	code := getJSON(t, fmt.Sprintf("http://%s/healthz", srv.Addr()), &body)
	if code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if body.Status != "ok" || body.Jobs["created"] != 1 || body.Jobs["total"] != 1 {
		t.Errorf("health body = %+v", body)
	}
}

func TestListJobsWithStatusFilter(t *testing.T) {
	srv, store := startServer(t)
	ctx := context.Background()
	testsupport.NewJob(t, store, jobs.Metadata{ReferenceID: "REF700002"})
	testsupport.NewJob(t, store, jobs.Metadata{ReferenceID: "REF700003"})
	if _, err := store.Transition(ctx, "REF700003", jobs.StatusRunning, jobs.Fields{}); err != nil {
		t.Fatalf("transition: %v", err)
	}

	var body struct {
		Jobs []struct {
			ReferenceID string `json:"reference_id"`
			Status      string `json:"status"`
		} `json:"jobs"`
	}
	code := getJSON(t, fmt.Sprintf("http://%s/api/v1/jobs?status=running", srv.Addr()), &body)
	if code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if len(body.Jobs) != 1 || body.Jobs[0].ReferenceID != "REF700003" {
		t.Errorf("filtered jobs = %+v", body.Jobs)
	}

	code = getJSON(t, fmt.Sprintf("http://%s/api/v1/jobs?status=bogus", srv.Addr()), nil)
	if code != http.StatusBadRequest {
		t.Errorf("bogus filter status code = %d", code)
	}
}

func TestGetJob(t *testing.T) {
	srv, store := startServer(t)
	testsupport.NewJob(t, store, jobs.Metadata{
		ReferenceID: "REF700004",
		OwnerEmail:  "alice@example.com",
		FileName:    "orders.json",
	})

	var view struct {
		ReferenceID string `json:"reference_id"`
		OwnerEmail  string `json:"owner_email"`
		Status      string `json:"status"`
	}
	code := getJSON(t, fmt.Sprintf("http://%s/api/v1/jobs/REF700004", srv.Addr()), &view)
	if code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if view.OwnerEmail != "alice@example.com" || view.Status != "created" {
		t.Errorf("job view = %+v", view)
	}

	code = getJSON(t, fmt.Sprintf("http://%s/api/v1/jobs/REF999999", srv.Addr()), nil)
	if code != http.StatusNotFound {
		t.Errorf("missing job status code = %d", code)
	}
}
