package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/gestaopredial/patrimonio/internal/access"
	"github.com/gestaopredial/patrimonio/internal/config"
	"github.com/gestaopredial/patrimonio/internal/db"
	httpmiddleware "github.com/gestaopredial/patrimonio/internal/http/middleware"
	"github.com/gestaopredial/patrimonio/internal/mailer"
	"github.com/gestaopredial/patrimonio/internal/notify"
	"github.com/gestaopredial/patrimonio/internal/profile"
	"github.com/gestaopredial/patrimonio/internal/property"
	"github.com/gestaopredial/patrimonio/internal/request"
	"github.com/gestaopredial/patrimonio/internal/service"
	"github.com/gestaopredial/patrimonio/internal/storage"
	"github.com/gestaopredial/patrimonio/internal/visit"
)

type Handler struct {
	cfg           *config.Config
	pool          *pgxpool.Pool
	redis         *redis.Client
	authService   *service.AuthService
	requests      *request.Service
	visits        *visit.Service
	properties    *property.Service
	profiles      *profile.Service
	access        *access.Service
	notifier      *notify.Service
	storage       storage.Uploader
	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
	devCookies    bool
}

// NewRouter devolve o roteador configurado com todos os módulos e a
// função que encerra o laço de notificações.
func NewRouter(cfg *config.Config, pool *pgxpool.Pool, redisClient *redis.Client, authService *service.AuthService) (http.Handler, func(), error) {
	devCookies := false
	for _, origin := range cfg.AllowOrigins {
		if strings.Contains(origin, "localhost") {
			devCookies = true
			break
		}
	}

	uploader, err := storage.New(cfg.Storage)
	if err != nil {
		return nil, nil, err
	}

	watermarks := notify.NewRedisWatermarks(redisClient)
	snapshots := notify.NewRedisSnapshots(redisClient)

	requestRepo := request.NewRepository(pool)
	requestLogger := log.With().Str("component", "requisicoes").Logger()
	requestService := request.NewService(requestRepo, uploader, watermarks, cfg.Notify.Lookback, requestLogger)

	runTx := func(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
		return db.WithTx(ctx, pool, fn)
	}
	visitRepo := visit.NewRepository(pool)
	visitLogger := log.With().Str("component", "visitas").Logger()
	visitService := visit.NewService(visitRepo, requestRepo, uploader, runTx, visitLogger)

	propertyRepo := property.NewRepository(pool)
	propertyService := property.NewService(propertyRepo)

	profileRepo := profile.NewRepository(pool)
	profileService := profile.NewService(profileRepo)

	accessRepo := access.NewRepository(pool)
	accessMailer := mailer.NewWebhookMailer(cfg.Mail.WebhookURL)
	accessLogger := log.With().Str("component", "acessos").Logger()
	accessService := access.NewService(accessRepo, accessMailer, cfg.Mail.AdminTo, accessLogger)

	notifyLogger := log.With().Str("component", "notificacoes").Logger()
	notifyService := notify.NewService(requestRepo, watermarks, snapshots, profileRepo, cfg.Notify, notifyLogger)
	notifyService.Start(context.Background())

	h := &Handler{
		cfg:           cfg,
		pool:          pool,
		redis:         redisClient,
		authService:   authService,
		requests:      requestService,
		visits:        visitService,
		properties:    propertyService,
		profiles:      profileService,
		access:        accessService,
		notifier:      notifyService,
		storage:       uploader,
		publicLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
		devCookies:    devCookies,
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)

		public.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", h.Login)
			auth.Post("/refresh", h.Refresh)
			auth.Post("/logout", h.Logout)
		})

		public.Post("/acessos", h.SubmitAccessRequest)
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(authService.JWT()))
		private.Use(httpmiddleware.UserRateLimit(h.authLimiter))

		private.Get("/me", h.Me)

		private.Route("/imoveis", func(im chi.Router) {
			im.Get("/", h.ListProperties)
			im.Get("/{id}", h.GetProperty)
			im.Get("/{id}/visitas", h.ListPropertyVisits)

			im.Group(func(mod chi.Router) {
				mod.Use(httpmiddleware.RequireModerator)
				mod.Post("/", h.CreateProperty)
				mod.Put("/{id}", h.UpdateProperty)
			})

			im.Group(func(admin chi.Router) {
				admin.Use(httpmiddleware.RequireAdmin)
				admin.Delete("/{id}", h.DeleteProperty)
			})
		})

		private.Route("/requisicoes", func(req chi.Router) {
			req.Post("/", h.CreateRequest)
			req.Get("/", h.ListRequests)
			req.Get("/contadores", h.RequestCounters)
			req.Post("/contadores/{categoria}/visto", h.MarkCategorySeen)
			req.Get("/{id}", h.GetRequest)
			req.Patch("/{id}/execucao", h.UpdateRequestExecution)

			req.Group(func(mod chi.Router) {
				mod.Use(httpmiddleware.RequireModerator)
				mod.Post("/{id}/aprovar", h.ApproveRequest)
				mod.Post("/{id}/rejeitar", h.RejectRequest)
			})
		})

		private.Route("/visitas", func(vi chi.Router) {
			vi.Post("/", h.RecordVisit)
			vi.Get("/minhas", h.ListMyVisits)
			vi.Get("/{id}", h.GetVisit)
		})

		private.Route("/notificacoes", func(n chi.Router) {
			n.Get("/", h.NotificationCount)
			n.Post("/visto", h.NotificationsSeen)
		})

		private.Route("/usuarios", func(u chi.Router) {
			u.Group(func(mod chi.Router) {
				mod.Use(httpmiddleware.RequireModerator)
				mod.Get("/", h.ListProfiles)
				mod.Get("/{id}", h.GetProfile)
			})
			u.Group(func(admin chi.Router) {
				admin.Use(httpmiddleware.RequireAdmin)
				admin.Post("/", h.CreateProfile)
				admin.Patch("/{id}", h.UpdateProfile)
				admin.Delete("/{id}", h.DeleteProfile)
			})
		})

		private.Group(func(admin chi.Router) {
			admin.Use(httpmiddleware.RequireAdmin)
			admin.Get("/acessos", h.ListAccessRequests)
			admin.Post("/acessos/{id}/aprovar", h.ApproveAccessRequest)
			admin.Post("/acessos/{id}/negar", h.DenyAccessRequest)
		})
	})

	return r, notifyService.Stop, nil
}

// Health responde status simples.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready valida conexões com Postgres e Redis.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbErr := h.pool.Ping(ctx)
	redisErr := h.redis.Ping(ctx).Err()

	if dbErr != nil || redisErr != nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "dependências indisponíveis", map[string]any{
			"db":    errorString(dbErr),
			"redis": errorString(redisErr),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (h *Handler) caller(r *http.Request) (profile.Caller, bool) {
	return httpmiddleware.GetCaller(r.Context())
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(chi.URLParam(r, param)))
}

// writeDomainError traduz sentinelas de domínio para o envelope HTTP.
func writeDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, request.ErrValidation),
		errors.Is(err, property.ErrValidation),
		errors.Is(err, visit.ErrValidation),
		errors.Is(err, profile.ErrValidation),
		errors.Is(err, profile.ErrInvalidRole),
		errors.Is(err, access.ErrValidation):
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	case errors.Is(err, request.ErrForbidden),
		errors.Is(err, property.ErrForbidden),
		errors.Is(err, profile.ErrForbidden),
		errors.Is(err, access.ErrForbidden):
		WriteError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	case errors.Is(err, request.ErrNotFound),
		errors.Is(err, property.ErrNotFound),
		errors.Is(err, visit.ErrNotFound),
		errors.Is(err, profile.ErrNotFound),
		errors.Is(err, access.ErrNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, request.ErrInvalidTransition),
		errors.Is(err, access.ErrResolved),
		errors.Is(err, profile.ErrEmailInUse):
		WriteError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	default:
		WriteError(w, http.StatusInternalServerError, "INTERNAL", fallback, nil)
	}
}
