package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/meridianfs/opsportal/config"
	"github.com/meridianfs/opsportal/internal/cache"
	"github.com/meridianfs/opsportal/internal/extract"
	"github.com/meridianfs/opsportal/internal/repository/box"
	"github.com/meridianfs/opsportal/internal/resolve"
	"github.com/meridianfs/opsportal/internal/retrieval"
)

// Run wires the pipeline together and serves the assistant-context API.
func Run(cfg *appconfig.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Shared dependencies (top-level DI)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Storage.Redis.Addr(),
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})

	cacheLogger := log.New(log.Writer(), "[CACHE] ", log.LstdFlags)
	local := cache.NewLocal(cfg.Retrieval.LocalCacheTTL)
	shared := cache.NewShared(rdb, cacheLogger)
	tiered := cache.NewTiered(local, shared, cfg.Retrieval.LocalCacheTTL, cfg.Retrieval.SharedCacheTTL)

	gw := box.New(cfg.Box, log.New(log.Writer(), "[BOX] ", log.LstdFlags))
	if !cfg.Box.Configured() {
		baseLogger.Printf("box provider not configured; attachment context will be empty")
	}

	resolver := resolve.New(gw, cfg.Limits,
		cache.NewLocal(cfg.Retrieval.FolderCacheTTL), cfg.Retrieval.FolderCacheTTL,
		log.New(log.Writer(), "[RESOLVE] ", log.LstdFlags))

	var ocr extract.OCR
	if cfg.Retrieval.OCREnabled {
		ocr = extract.NewTesseractOCR(cfg.Retrieval.OCRLanguages, cfg.Retrieval.OCRMaxPages,
			log.New(log.Writer(), "[OCR] ", log.LstdFlags))
	}
	engine := extract.NewEngine(gw, tiered, ocr, cfg.Retrieval.MaxFileBytes,
		log.New(log.Writer(), "[EXTRACT] ", log.LstdFlags))

	var chunks retrieval.ChunkSearcher
	if cfg.Retrieval.ChunkSearchURL != "" {
		chunks = retrieval.NewHTTPChunkSearcher(cfg.Retrieval.ChunkSearchURL, cfg.Retrieval.ChunkSearchAPIKey)
	}
	orch := retrieval.NewOrchestrator(resolver, engine, chunks,
		log.New(log.Writer(), "[RETRIEVE] ", log.LstdFlags))

	h := &AssistantHandler{
		Contexts: orch,
		Timeout:  cfg.Retrieval.RequestTimeout,
		Logger:   log.New(log.Writer(), "[ASSIST] ", log.LstdFlags),
	}
	h.Register(e.Group("/api/assistant"))

	return e.Start(cfg.Server.Address)
}
