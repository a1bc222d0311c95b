package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/userhub/userhub/internal/auth"
)

type fakeVerifier struct {
	principal *auth.Principal
	err       error
}

func (f fakeVerifier) Verify(context.Context, string) (*auth.Principal, error) {
	return f.principal, f.err
}

func authHandler(t *testing.T, verifier TokenVerifier) http.Handler {
	t.Helper()

	mw := Auth(AuthConfig{Logger: slog.Default(), Verifier: verifier})
	return mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(auth.SubjectFromContext(r.Context())))
	}))
}

func TestAuth_ValidToken(t *testing.T) {
	t.Parallel()

	h := authHandler(t, fakeVerifier{principal: &auth.Principal{Subject: "user-1"}})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "user-1" {
		t.Errorf("principal subject = %q, want user-1", rec.Body.String())
	}
}

func TestAuth_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		header   string
		verifier TokenVerifier
	}{
		{name: "missing header", header: "", verifier: fakeVerifier{}},
		{name: "not bearer", header: "Basic abc", verifier: fakeVerifier{}},
		{name: "empty token", header: "Bearer ", verifier: fakeVerifier{}},
		{name: "verifier rejects", header: "Bearer bad", verifier: fakeVerifier{err: errors.New("expired")}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := authHandler(t, tt.verifier)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}
