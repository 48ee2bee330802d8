package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/subhub/telecom-subscriptions/api/controllers"
	"github.com/subhub/telecom-subscriptions/api/middleware"
	"github.com/subhub/telecom-subscriptions/internal/auth"
	"github.com/subhub/telecom-subscriptions/internal/dashboard"
	"github.com/subhub/telecom-subscriptions/internal/plans"
	"github.com/subhub/telecom-subscriptions/internal/subscriptions"
	"github.com/subhub/telecom-subscriptions/pkg/auth/session"
	"github.com/subhub/telecom-subscriptions/pkg/config"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
	"github.com/subhub/telecom-subscriptions/pkg/logger"
	pkgredis "github.com/subhub/telecom-subscriptions/pkg/redis"
)

// RedisBackend is the slice of the redis client the HTTP layer needs.
type RedisBackend interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

// Services bundles the domain services mounted on the router.
type Services struct {
	Auth          auth.Service
	Plans         plans.Service
	Subscriptions subscriptions.Service
	Dashboard     dashboard.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient RedisBackend,
	sessions session.AccessSessionChecker,
	svcs Services,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginIdentityLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterIdentityLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	authMW := middleware.Auth(cfg.JWT, sessions, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(svcs.Auth, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(svcs.Auth, logg))

			r.Group(func(r chi.Router) {
				r.Use(authMW)
				r.Get("/profile", controllers.AuthProfile(svcs.Auth, logg))
				r.Put("/profile", controllers.AuthUpdateProfile(svcs.Auth, logg))
				r.Post("/change-password", controllers.AuthChangePassword(svcs.Auth, logg))
				r.Get("/verify", controllers.AuthVerify(svcs.Auth, logg))
			})
		})

		r.Route("/plans", func(r chi.Router) {
			r.Get("/", controllers.PlansList(svcs.Plans, logg))
			r.Get("/categories", controllers.PlanCategories(svcs.Plans, logg))
			r.Get("/popular", controllers.PlansPopular(svcs.Plans, logg))
			r.With(authMW).Get("/recommendations", controllers.PlanRecommendations(svcs.Plans, svcs.Subscriptions, logg))
			r.Get("/{planRef}", controllers.PlanDetail(svcs.Plans, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/methods", controllers.PaymentMethods(logg))
			r.Post("/validate-card", controllers.PaymentValidateCard(time.Now, logg))

			r.Group(func(r chi.Router) {
				r.Use(authMW)
				r.Use(middleware.Idempotency(redisClient, logg))
				r.Get("/history", controllers.PaymentHistory(svcs.Subscriptions, logg))
				r.Get("/summary", controllers.PaymentSummary(svcs.Subscriptions, logg))
				r.Post("/process", controllers.PaymentProcess(svcs.Subscriptions, logg))
				r.Get("/transactions/{transactionId}", controllers.PaymentTransaction(svcs.Subscriptions, logg))
				r.Post("/transactions/{transactionId}/refund", controllers.PaymentRefund(svcs.Subscriptions, logg))
				r.Post("/transactions/{transactionId}/retry", controllers.PaymentRetry(svcs.Subscriptions, logg))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authMW)
			r.Use(middleware.Idempotency(redisClient, logg))

			r.Route("/subscriptions", func(r chi.Router) {
				r.Get("/", controllers.SubscriptionList(svcs.Subscriptions, logg))
				r.Post("/", controllers.SubscriptionCreate(svcs.Subscriptions, logg))
				r.Get("/current", controllers.SubscriptionCurrent(svcs.Subscriptions, logg))
				r.Post("/{userPlanId}/renew", controllers.SubscriptionRenew(svcs.Subscriptions, logg))
				r.Post("/{userPlanId}/cancel", controllers.SubscriptionCancel(svcs.Subscriptions, logg))
				r.Post("/{userPlanId}/auto-renewal", controllers.SubscriptionToggleAutoRenewal(svcs.Subscriptions, logg))
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/dashboard", controllers.UserDashboard(svcs.Dashboard, logg))
				r.Get("/notifications", controllers.UserNotifications(svcs.Dashboard, logg))
				r.Get("/stats", controllers.UserStats(svcs.Dashboard, logg))
				r.Get("/activity", controllers.UserActivity(svcs.Dashboard, logg))
				r.Delete("/delete-account", controllers.AuthDeleteAccount(svcs.Auth, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(authMW)
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
		r.Use(middleware.Idempotency(redisClient, logg))
		r.Post("/plans", controllers.AdminPlanCreate(svcs.Plans, logg))
		r.Patch("/plans/{planId}", controllers.AdminPlanUpdate(svcs.Plans, logg))
	})

	return r
}
