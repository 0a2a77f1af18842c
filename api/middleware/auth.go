package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/fieldops-backend/api/responses"
	pkgAuth "github.com/angelmondragon/fieldops-backend/pkg/auth"
	"github.com/angelmondragon/fieldops-backend/pkg/config"
	"github.com/angelmondragon/fieldops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fieldops-backend/pkg/errors"
	"github.com/angelmondragon/fieldops-backend/pkg/logger"
	"github.com/angelmondragon/fieldops-backend/pkg/outbox"
)

// Auth validates a bearer token and seeds the request context with the claims.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if len(claims.Roles) == 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "token carries no roles"))
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID.String())
			ctx = WithRoles(ctx, claims.Roles)
			if claims.TenantID != uuid.Nil {
				ctx = WithTenantID(ctx, claims.TenantID.String())
			}

			actor := outbox.ActorRef{UserID: claims.UserID, Role: string(primaryRole(claims.Roles))}
			if claims.TenantID != uuid.Nil {
				tenantID := claims.TenantID
				actor.TenantID = &tenantID
			}
			ctx = outbox.WithActor(ctx, actor)

			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
				ctx = logg.WithActorRole(ctx, string(primaryRole(claims.Roles)))
				if claims.TenantID != uuid.Nil {
					ctx = logg.WithTenantID(ctx, claims.TenantID.String())
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func primaryRole(roles []enums.Role) enums.Role {
	if len(roles) == 0 {
		return ""
	}
	return roles[0]
}
