package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/fieldops-backend/pkg/auth"
	"github.com/angelmondragon/fieldops-backend/pkg/authz"
	"github.com/angelmondragon/fieldops-backend/pkg/config"
	"github.com/angelmondragon/fieldops-backend/pkg/enums"
	"github.com/angelmondragon/fieldops-backend/pkg/outbox"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "fieldops-test", ExpirationMinutes: 60}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func mintTestToken(t *testing.T, tenantID uuid.UUID, roles ...enums.Role) (string, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{
		UserID:   userID,
		TenantID: tenantID,
		Roles:    roles,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token, userID
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWT, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWT, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthAllowsValidToken(t *testing.T) {
	tenantID := uuid.New()
	token, userID := mintTestToken(t, tenantID, enums.RoleManager)

	var (
		gotUser   string
		gotTenant string
		gotRoles  []enums.Role
		gotActor  *outbox.ActorRef
	)
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotTenant = TenantIDFromContext(r.Context())
		gotRoles = RolesFromContext(r.Context())
		gotActor = outbox.ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if gotUser != userID.String() || gotTenant != tenantID.String() {
		t.Fatalf("unexpected context user=%s tenant=%s", gotUser, gotTenant)
	}
	if len(gotRoles) != 1 || gotRoles[0] != enums.RoleManager {
		t.Fatalf("unexpected roles %v", gotRoles)
	}
	if gotActor == nil || gotActor.UserID != userID || gotActor.TenantID == nil || *gotActor.TenantID != tenantID {
		t.Fatalf("unexpected outbox actor %+v", gotActor)
	}
}

func TestRequirePermission(t *testing.T) {
	handler := RequirePermission(authz.QuotasManage, nil)(okHandler())

	cases := []struct {
		roles []enums.Role
		want  int
	}{
		{[]enums.Role{enums.RoleAdmin}, http.StatusOK},
		{[]enums.Role{enums.RoleSuperAdmin}, http.StatusOK},
		{[]enums.Role{enums.RoleDispatcher}, http.StatusForbidden},
		{nil, http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(WithRoles(req.Context(), tc.roles))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != tc.want {
			t.Fatalf("roles %v: expected %d got %d", tc.roles, tc.want, resp.Code)
		}
	}
}
