// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/bloghub/blog-api/internal/access"
	"github.com/bloghub/blog-api/internal/comments"
	commentspostgres "github.com/bloghub/blog-api/internal/comments/postgres"
	"github.com/bloghub/blog-api/internal/config"
	"github.com/bloghub/blog-api/internal/domain"
	"github.com/bloghub/blog-api/internal/identity"
	"github.com/bloghub/blog-api/internal/identity/jwt"
	"github.com/bloghub/blog-api/internal/identity/password"
	identitypostgres "github.com/bloghub/blog-api/internal/identity/postgres"
	"github.com/bloghub/blog-api/internal/media"
	"github.com/bloghub/blog-api/internal/pkg/ctxlog"
	"github.com/bloghub/blog-api/internal/pkg/httputil"
	"github.com/bloghub/blog-api/internal/pkg/metrics"
	"github.com/bloghub/blog-api/internal/pkg/postgres"
	"github.com/bloghub/blog-api/internal/posts"
	postspostgres "github.com/bloghub/blog-api/internal/posts/postgres"
	"github.com/bloghub/blog-api/internal/version"
	"github.com/bloghub/blog-api/migrations"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const dbMetricsInterval = 15 * time.Second

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc
}

// New creates a new application instance: it connects to the database,
// applies migrations and seed accounts when enabled, and builds the router.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)
	slog.SetDefault(logger)

	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectTimeout:  cfg.Database.ConnectTimeout,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(cfg.Database.URL, migrations.FS); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		logger.Info("database migrations applied")
	}

	metricsCtx, metricsCancel := context.WithCancel(context.Background())

	app := &App{
		config:        cfg,
		logger:        logger,
		db:            db,
		metricsCancel: metricsCancel,
	}

	router, err := app.setupRouter(ctx)
	if err != nil {
		db.Close()
		metricsCancel()
		return nil, fmt.Errorf("setup router: %w", err)
	}

	go metrics.CollectDBPoolMetrics(metricsCtx, db, dbMetricsInterval)

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
		"version", version.Version,
	)

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.metricsCancel()

	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	a.db.Close()

	return errors.Join(errs...)
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

func (a *App) setupRouter(ctx context.Context) (*chi.Mux, error) {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout(a.config.Server.RequestTimeout)))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		http.ServeFile(w, r, "api/openapi/openapi.yaml")
	})
	r.Get("/docs", docsHandler)

	// Identity
	identityRepo := identitypostgres.NewRepository(a.db)
	authenticator, err := jwt.NewAuthenticator(jwt.Config{
		SecretKey: a.config.JWT.SecretKey,
		TokenTTL:  a.config.JWT.TokenTTL,
		Issuer:    a.config.JWT.Issuer,
	})
	if err != nil {
		return nil, fmt.Errorf("create authenticator: %w", err)
	}
	hasher := password.NewBcryptHasher(a.config.JWT.BcryptCost)
	identityService := identity.NewService(identityRepo, authenticator, hasher)
	identityHandler := identity.NewHandler(identityService)

	if a.config.Seed.Enabled {
		if err := identityService.SeedUsers(ctx, seedUsers(a.config.Seed.Users)); err != nil {
			return nil, fmt.Errorf("seed users: %w", err)
		}
	}

	// Access control
	commentsRepo := commentspostgres.NewRepository(a.db)
	evaluator, err := access.NewEvaluator(map[access.Resource]access.OwnerResolver{
		access.ResourceComment: comments.NewOwnerResolver(commentsRepo),
	})
	if err != nil {
		return nil, fmt.Errorf("create access evaluator: %w", err)
	}

	// Content
	postsService := posts.NewService(postspostgres.NewRepository(a.db), evaluator)
	postsHandler := posts.NewHandler(postsService)

	commentsService := comments.NewService(commentsRepo, postsService, evaluator)
	commentsHandler := comments.NewHandler(commentsService)

	uploader, err := a.newUploader()
	if err != nil {
		return nil, err
	}
	mediaHandler := media.NewHandler(uploader, evaluator, a.config.Media.MaxUploadSize)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httputil.SecureHeadersMiddleware(a.config.Server.Development))

		identityHandler.RegisterRoutes(r)
		postsHandler.RegisterPublicRoutes(r)
		commentsHandler.RegisterPublicRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(httputil.AuthMiddleware(identityService))

			identityHandler.RegisterProtectedRoutes(r)
			postsHandler.RegisterRoutes(r)
			commentsHandler.RegisterRoutes(r)
			mediaHandler.RegisterRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(httputil.RequireRole(domain.RoleAdmin))
				identityHandler.RegisterAdminRoutes(r)
			})
		})
	})

	return r, nil
}

func (a *App) newUploader() (media.Uploader, error) {
	if !a.config.Media.Enabled {
		a.logger.Info("image uploads disabled")
		return media.DisabledUploader{}, nil
	}

	cld := a.config.Media.Cloudinary
	uploader, err := media.NewCloudinaryUploader(media.CloudinaryConfig{
		CloudName: cld.CloudName,
		APIKey:    cld.APIKey,
		APISecret: cld.APISecret,
	})
	if err != nil {
		return nil, fmt.Errorf("create image uploader: %w", err)
	}
	a.logger.Info("image uploads enabled", "cloud_name", cld.CloudName)
	return uploader, nil
}

func requestTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 60 * time.Second
	}
	return d
}

func seedUsers(users []config.SeedUserConfig) []identity.SeedUser {
	out := make([]identity.SeedUser, 0, len(users))
	for _, u := range users {
		out = append(out, identity.SeedUser{
			Email:       u.Email,
			DisplayName: u.DisplayName,
			Password:    u.Password,
			Role:        domain.Role(u.Role),
		})
	}
	return out
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func docsHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Blog API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
        SwaggerUIBundle({
            url: "/api/openapi.yaml",
            dom_id: '#swagger-ui',
            presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
            layout: "BaseLayout"
        });
    </script>
</body>
</html>`))
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
