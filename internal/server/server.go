package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/mohammad-safakhou/documind/config"
	"github.com/mohammad-safakhou/documind/internal/answer"
	"github.com/mohammad-safakhou/documind/internal/documents"
	"github.com/mohammad-safakhou/documind/internal/extract"
	"github.com/mohammad-safakhou/documind/internal/llm"
	"github.com/mohammad-safakhou/documind/internal/runtime"
	"github.com/mohammad-safakhou/documind/internal/store"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Config    *appconfig.Config
	Secret    []byte
	Store     *store.Store // optional
	Documents documents.Repository
	Composer  *answer.Composer
	Extractor *extract.Service
	Limiter   runtime.Limiter // nil disables chat rate limiting
	Metrics   http.Handler
}

// NewServer builds the echo instance with all routes registered.
func NewServer(d Deps) *echo.Echo {
	cfg := d.Config
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			if req.Method == http.MethodHead {
				_ = c.NoContent(code)
				return
			}
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.CORS.AllowOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, "Cookie"},
		AllowCredentials: true,
	}))

	metrics := d.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, StatusResponse{Message: "API is running"})
	})
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(metrics))
	registerDocs(e)

	api := e.Group("/api")
	auth := &AuthHandler{
		Store:        d.Store,
		Secret:       d.Secret,
		TTL:          cfg.Auth.TokenTTL(),
		GuestSubject: cfg.Auth.GuestSubject,
		SecureCookie: cfg.General.Env == "prod",
	}
	auth.Register(api.Group("/auth"))

	me := api.Group("/me")
	me.Use(runtime.EchoAuthMiddleware(d.Secret))
	me.GET("", func(c echo.Context) error {
		return c.JSON(http.StatusOK, MeResponse{UserID: c.Get("user_id").(string)})
	})

	files := &FilesHandler{
		Extractor: d.Extractor,
		Documents: d.Documents,
		TempDir:   cfg.Upload.TempDir,
		MaxSize:   cfg.Upload.MaxSize,
		Logger:    log.New(log.Writer(), "[UPLOAD] ", log.LstdFlags),
	}
	files.Register(api.Group("/files"), d.Secret)

	chat := &ChatHandler{
		Documents: d.Documents,
		Composer:  d.Composer,
		Logger:    log.New(log.Writer(), "[CHAT] ", log.LstdFlags),
	}
	chat.Register(api.Group("/chat"), d.Secret, d.Limiter)

	return e
}

// Run wires dependencies from cfg and serves until ctx is canceled.
func Run(ctx context.Context, cfg *appconfig.Config, addr string) error {
	secret, err := runtime.LoadJWTSecret(cfg)
	if err != nil {
		return err
	}

	tel, err := runtime.SetupTelemetry(ctx, cfg.Telemetry, runtime.TelemetryOptions{ServiceName: cfg.Telemetry.ServiceName, ServiceVersion: Version})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(sctx); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	mem := documents.NewMemory()
	var docs documents.Repository = mem
	var st *store.Store
	if cfg.Storage.Postgres.Configured() {
		dsn := cfg.Storage.Postgres.DSN()
		if err := store.Migrate("file://migrations", dsn, "up", 0); err != nil {
			log.Printf("migrations not applied: %v", err)
		}
		pctx, cancel := context.WithTimeout(ctx, cfg.Storage.Postgres.Timeout)
		st, err = store.NewWithDSN(pctx, dsn)
		cancel()
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer st.Close()
		docs = &documents.Chain{Primary: st.Documents(), Fallback: mem, Logger: log.New(log.Writer(), "[DOCS] ", log.LstdFlags)}
	} else {
		log.Printf("postgres not configured; documents kept in memory and account endpoints disabled")
	}

	var rdb redis.UniversalClient
	if cfg.Storage.Redis.Configured() {
		client, err := newRedisClient(ctx, cfg.Storage.Redis)
		if err != nil {
			log.Printf("redis unavailable, rate limiting per process: %v", err)
		} else {
			defer client.Close()
			rdb = client
		}
	}

	llmLogger := log.New(log.Writer(), "[LLM] ", log.LstdFlags)
	composer := answer.NewComposer(
		llm.NewCompleter(cfg.LLM, llmLogger),
		answer.WithTimeout(cfg.LLM.Timeout),
		answer.WithMaxContext(cfg.LLM.MaxContextChars),
	)
	extractor := extract.NewService(
		llm.NewTranscriberFromConfig(cfg.Transcription, llmLogger),
		extract.PDFExtractor{},
		log.New(log.Writer(), "[UPLOAD] ", log.LstdFlags),
	)

	e := NewServer(Deps{
		Config:    cfg,
		Secret:    secret,
		Store:     st,
		Documents: docs,
		Composer:  composer,
		Extractor: extractor,
		Limiter:   runtime.NewChatLimiter(cfg.RateLimit, rdb),
		Metrics:   tel.MetricsHandler(),
	})

	if addr == "" {
		addr = cfg.General.Listen
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", addr)
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Printf("shutting down")
		return e.Shutdown(sctx)
	}
}

func newRedisClient(ctx context.Context, cfg appconfig.RedisConfig) (*redis.Client, error) {
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: cfg.Addr(), Password: cfg.Password, DB: cfg.DB}
	}
	if cfg.Timeout > 0 {
		opts.DialTimeout = cfg.Timeout
		opts.ReadTimeout = cfg.Timeout
		opts.WriteTimeout = cfg.Timeout
	}
	client := redis.NewClient(opts)
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed (%s): %w", opts.Addr, err)
	}
	return client, nil
}
