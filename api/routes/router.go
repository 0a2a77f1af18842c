package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/fieldops-backend/api/controllers"
	"github.com/angelmondragon/fieldops-backend/api/middleware"
	"github.com/angelmondragon/fieldops-backend/internal/quotas"
	"github.com/angelmondragon/fieldops-backend/pkg/authz"
	"github.com/angelmondragon/fieldops-backend/pkg/config"
	"github.com/angelmondragon/fieldops-backend/pkg/db"
	"github.com/angelmondragon/fieldops-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/fieldops-backend/pkg/redis"
)

// RedisClient is the slice of the redis client the router needs.
type RedisClient interface {
	pkgredis.IdempotencyStore
	Ping(ctx context.Context) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient RedisClient,
	gatherer prometheus.Gatherer,
	quotaService quotas.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": redisClient,
		}))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, cfg.Idempotency.TTL, logg))

		view := middleware.RequirePermission(authz.QuotasView, logg)
		manage := middleware.RequirePermission(authz.QuotasManage, logg)
		sync := middleware.RequirePermission(authz.QuotasSync, logg)
		stats := middleware.RequirePermission(authz.QuotasStats, logg)

		r.Route("/quotas", func(r chi.Router) {
			r.With(view).Get("/", controllers.QuotaList(quotaService, logg))
			r.With(stats).Get("/stats", controllers.QuotaStats(quotaService, logg))
			r.With(manage).Post("/bulk-limit", controllers.QuotaBulkLimit(quotaService, logg))
			r.With(view).Get("/{quotaId}", controllers.QuotaGet(quotaService, logg))
			r.With(manage).Post("/{quotaId}/usage", controllers.QuotaAdjustUsage(quotaService, logg))
			r.With(manage).Post("/{quotaId}/reset", controllers.QuotaReset(quotaService, logg))
		})

		r.Route("/tenants/{tenantId}/quotas", func(r chi.Router) {
			r.With(view).Get("/", controllers.TenantQuotaList(quotaService, logg))
			r.With(view).Get("/summary", controllers.TenantQuotaSummary(quotaService, logg))
			r.With(view).Get("/recommendations", controllers.TenantQuotaRecommendations(quotaService, logg))
			r.With(manage).Put("/{quotaType}", controllers.TenantQuotaSetLimit(quotaService, logg))
			r.With(sync).Post("/{quotaType}/sync", controllers.TenantQuotaSync(quotaService, logg))
		})
	})

	return r
}
