//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

type userResponse struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	UpdatedAt *string `json:"updated_at"`
}

// TestE2ESmoke exercises the full user lifecycle against a running server:
// create, read (twice, so the second read comes from cache), partial
// update, delete, and the post-delete 404.
func TestE2ESmoke(t *testing.T) {
	baseURL := envOrDefault("E2E_BASE_URL", "http://localhost:8080")
	token := os.Getenv("E2E_TOKEN")
	if token == "" {
		t.Skip("E2E_TOKEN not set")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	email := fmt.Sprintf("e2e-%d@test.local", time.Now().UnixNano())

	// Create
	var created userResponse
	status := doJSON(t, client, token, http.MethodPost, baseURL+"/api/v1/users",
		fmt.Sprintf(`{"name":"E2E User","email":%q}`, email), &created)
	if status != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", status)
	}
	if created.ID == 0 {
		t.Fatal("create did not assign an id")
	}

	userURL := fmt.Sprintf("%s/api/v1/users/%d", baseURL, created.ID)

	// Read twice; both must agree regardless of cache state.
	for i := 0; i < 2; i++ {
		var got userResponse
		if status := doJSON(t, client, token, http.MethodGet, userURL, "", &got); status != http.StatusOK {
			t.Fatalf("get %d status = %d, want 200", i, status)
		}
		if got.Email != email {
			t.Fatalf("get %d email = %q, want %q", i, got.Email, email)
		}
	}

	// Partial update: name only, email must survive.
	var updated userResponse
	status = doJSON(t, client, token, http.MethodPatch, userURL, `{"name":"E2E Renamed"}`, &updated)
	if status != http.StatusOK {
		t.Fatalf("update status = %d, want 200", status)
	}
	if updated.Name != "E2E Renamed" || updated.Email != email {
		t.Fatalf("update result = %+v", updated)
	}
	if updated.UpdatedAt == nil {
		t.Fatal("update did not set updated_at")
	}

	// Lookup by email reflects the update.
	var byEmail userResponse
	status = doJSON(t, client, token, http.MethodGet,
		baseURL+"/api/v1/users/by-email?email="+email, "", &byEmail)
	if status != http.StatusOK {
		t.Fatalf("by-email status = %d, want 200", status)
	}
	if byEmail.Name != "E2E Renamed" {
		t.Fatalf("by-email name = %q, want renamed value", byEmail.Name)
	}

	// Delete, then confirm the user is gone everywhere.
	if status := doJSON(t, client, token, http.MethodDelete, userURL, "", nil); status != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", status)
	}
	if status := doJSON(t, client, token, http.MethodGet, userURL, "", nil); status != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", status)
	}
	if status := doJSON(t, client, token, http.MethodDelete, userURL, "", nil); status != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", status)
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func doJSON(t *testing.T, client *http.Client, token, method, url, body string, out any) int {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, url, err)
		}
	}
	return resp.StatusCode
}
