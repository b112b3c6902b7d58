package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/querystudio/querystudio/internal/observability"
)

func TestStaticAPIKeyValidatorParsing(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("k1:alice:studio_user|admin, k2:bob:viewer")
	if err != nil {
		t.Fatalf("NewStaticAPIKeyValidator() error = %v", err)
	}
	if validator.Len() != 2 {
		t.Fatalf("Len() = %d", validator.Len())
	}
	principal, ok := validator.Validate(context.Background(), "k1")
	if !ok {
		t.Fatal("expected key to be valid")
	}
	if principal.Name != "alice" || !principal.HasRole(RoleStudioUser) || !principal.HasRole("admin") {
		t.Fatalf("principal = %+v", principal)
	}
	if _, ok := validator.Validate(context.Background(), "nope"); ok {
		t.Fatal("unknown key should not validate")
	}
}

func TestStaticAPIKeyValidatorEmptySpec(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("  ")
	if err != nil {
		t.Fatalf("NewStaticAPIKeyValidator() error = %v", err)
	}
	if validator.Len() != 0 {
		t.Fatalf("Len() = %d", validator.Len())
	}
}

func TestStaticAPIKeyValidatorRejectsBadSpec(t *testing.T) {
	for _, spec := range []string{"invalid", "k1::studio_user", "k1:alice:", "k1:alice:a,k1:bob:b"} {
		if _, err := NewStaticAPIKeyValidator(spec); err == nil {
			t.Fatalf("expected parse error for %q", spec)
		}
	}
}

func TestMiddleware(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("k1:alice:studio_user,k2:bob:viewer")
	if err != nil {
		t.Fatalf("validator setup: %v", err)
	}
	var seen Principal
	handler := Middleware(observability.Discard(), validator, RoleStudioUser)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{name: "missing", want: http.StatusUnauthorized},
		{name: "invalid", header: "X-API-Key", value: "bad", want: http.StatusUnauthorized},
		{name: "wrong role", header: "X-API-Key", value: "k2", want: http.StatusForbidden},
		{name: "api key header", header: "X-API-Key", value: "k1", want: http.StatusNoContent},
		{name: "bearer", header: "Authorization", value: "Bearer k1", want: http.StatusNoContent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/sql", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("status = %d, want %d", rr.Code, tc.want)
			}
		})
	}
	if seen.Name != "alice" {
		t.Fatalf("principal in context = %+v", seen)
	}
}
