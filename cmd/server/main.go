package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/data-studio/backend/internal/ai"
	"github.com/data-studio/backend/internal/animation"
	"github.com/data-studio/backend/internal/api"
	"github.com/data-studio/backend/internal/config"
	"github.com/data-studio/backend/internal/session"
	"github.com/data-studio/backend/internal/storage"
	"github.com/data-studio/backend/internal/web"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Resolve config next to the executable
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	exeDir := filepath.Dir(exePath)

	configPath := filepath.Join(exeDir, "studio.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	embeddedMode := web.HasEmbeddedFiles()

	// Storage for uploads and generated artifacts
	fileStore, err := storage.NewLocalStore(cfg.GetUploadDir(), cfg.GetArtifactsDir())
	if err != nil {
		fmt.Printf("Failed to initialize storage: %v\n", err)
		os.Exit(1)
	}

	// AI provider is optional: without an API key the server still ingests
	// and charts, it just cannot analyze text or generate insights.
	var analyst ai.Service
	aiProviderName := ""
	provider, err := ai.NewProvider(ai.Config{
		Provider: cfg.AI.Provider,
		Model:    cfg.AI.Model,
		Endpoint: cfg.AI.Endpoint,
		Timeout:  time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
		Retries:  cfg.AI.MaxRetries,
	})
	if err != nil {
		fmt.Printf("Warning: AI provider disabled: %v\n", err)
	} else {
		analyst = ai.NewAnalyst(provider, cfg.AI.MaxRetries)
		aiProviderName = provider.Name()
		fmt.Printf("AI provider: %s (%s)\n", provider.Name(), cfg.AI.Model)
	}

	// Dataset session manager with background cleanup
	sessionMgr := session.NewManager(cfg.GetTempDir(), analyst)
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.Advanced.CleanupIntervalMinutes) * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			sessionMgr.CleanupOldSessions(time.Duration(cfg.Advanced.SessionTimeoutMinutes) * time.Minute)
		}
	}()

	// Animation jobs
	encoder := animation.NewEncoder(cfg.GetTempDir())
	if encoder.HasFFmpeg() {
		fmt.Println("ffmpeg found: animations will be encoded as MP4")
	} else {
		fmt.Println("ffmpeg not found: animations will be encoded as MJPEG AVI")
	}
	animMgr := animation.NewManager(fileStore, encoder, cfg.Animation)
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.Advanced.CleanupIntervalMinutes) * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			animMgr.CleanupOldJobs(time.Duration(cfg.Advanced.SessionTimeoutMinutes) * time.Minute)
		}
	}()

	handlers := api.NewHandlers(&api.Dependencies{
		Store:             fileStore,
		SessionMgr:        sessionMgr,
		AnimationMgr:      animMgr,
		Analyst:           analyst,
		AllowedFileTypes:  cfg.Security.AllowedFileTypes,
		AllowFileDeletion: cfg.Security.AllowFileDeletion,
		Version:           Version,
		AIProviderName:    aiProviderName,
	})

	// Rendered chart PNGs age out on the same schedule as sessions
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.Advanced.CleanupIntervalMinutes) * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			handlers.Chart.CleanupOldCharts(time.Duration(cfg.Advanced.SessionTimeoutMinutes) * time.Minute)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.ErrorHandler

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/status") ||
				strings.HasSuffix(path, "/progress") ||
				path == "/api/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize:         1024 * 4,
		DisablePrintStack: false,
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return strings.Contains(path, "/progress") ||
				strings.Contains(path, "/upload") ||
				strings.Contains(path, "/video") ||
				strings.Contains(path, "/ws/") ||
				c.Request().Header.Get("Accept") == "text/event-stream"
		},
		ErrorMessage: "Request timeout - query took too long",
	}))

	if cfg.Advanced.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: cfg.Advanced.CompressionLevel,
			Skipper: func(c echo.Context) bool {
				return c.Request().Header.Get("Accept") == "text/event-stream" ||
					strings.Contains(c.Request().URL.Path, "/video")
			},
		}))
	}

	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	if cfg.Server.EnableCORS {
		if embeddedMode {
			origins := strings.Split(cfg.Server.AllowOrigins, ",")
			for i := range origins {
				origins[i] = strings.TrimSpace(origins[i])
			}
			if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
				origins = []string{"*"}
			}
			e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
				AllowOrigins: origins,
				AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
				AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
			}))
		} else {
			// Development mode - only allow localhost dev servers
			e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
				AllowOrigins: []string{
					"http://localhost:5173", "http://127.0.0.1:5173",
					"http://localhost:3000", "http://127.0.0.1:3000",
				},
				AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
				AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
			}))
		}
	}

	api.RegisterRoutes(e, handlers)

	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			fmt.Printf("Warning: failed to register static routes: %v\n", err)
		} else {
			fmt.Println("Serving embedded UI from binary")
		}
	}

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	aiLine := "disabled (no API key)"
	if aiProviderName != "" {
		aiLine = fmt.Sprintf("%s / %s", aiProviderName, cfg.AI.Model)
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Data Story Studio Server                        ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  AI:         %-45s║\n", aiLine)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Data Dir:  %-46s║\n", cfg.GetDataDir())
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	if embeddedMode {
		fmt.Printf("Open http://localhost:%d in your browser\n\n", cfg.Server.Port)
	}

	e.Logger.Fatal(e.StartServer(s))
}
