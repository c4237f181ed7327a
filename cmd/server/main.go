// @title           Reality Studio Backend API
// @version         1.0.0
// @description     Backend API for AI reality-show production. Turns a show prompt into a project, cast and episodes, then writes scripts, storyboards, scene media and render manifests, rendering video in the background while clients poll episode status.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"reality-studio-backend/docs"
	"reality-studio-backend/internal/batch"
	"reality-studio-backend/internal/cache"
	"reality-studio-backend/internal/config"
	"reality-studio-backend/internal/database"
	"reality-studio-backend/internal/generator"
	"reality-studio-backend/internal/handlers"
	"reality-studio-backend/internal/pipeline"
	"reality-studio-backend/internal/recovery"
	"reality-studio-backend/internal/render"
	"reality-studio-backend/internal/scheduler"
	"reality-studio-backend/internal/services"
	"reality-studio-backend/internal/stages"
	"reality-studio-backend/internal/store"
	"reality-studio-backend/internal/supabase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:       "reality-studio",
		Level:      hclog.LevelFromString(cfg.LogLevel),
		JSONFormat: cfg.Environment == "production",
	})

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Update Swagger docs with dynamic base URL
	if cfg.BaseURL != "" {
		baseURL, err := url.Parse(cfg.BaseURL)
		if err == nil {
			docs.SwaggerInfo.Host = baseURL.Host
			if baseURL.Scheme == "https" {
				docs.SwaggerInfo.Schemes = []string{"https", "http"}
			} else {
				docs.SwaggerInfo.Schemes = []string{"http", "https"}
			}
		}
	}

	ctx := context.Background()

	// Generators
	openaiClient := generator.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.OpenAIImageModel)
	var text generator.TextGenerator = openaiClient
	if cfg.LLMProvider == config.ProviderGemini {
		geminiClient, err := generator.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatalf("Failed to initialize Gemini client: %v", err)
		}
		defer geminiClient.Close()
		text = geminiClient
	}
	if cfg.GenerationCacheTTL > 0 {
		text = generator.NewCached(text, cache.New(cfg.GenerationCacheTTL))
	}
	speech := generator.NewSpeechClient(cfg.TTSBaseURL, cfg.TTSAPIKey, cfg.TTSDefaultVoice)

	// Persistence. Without DATABASE_URL everything stays in memory.
	mem := store.NewMemory()
	var (
		st        store.Store      = mem
		telemetry store.Telemetry  = mem
		media     store.MediaStore = mem
	)

	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory store")
	} else {
		db, err := database.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		applied, err := database.NewMigrator(db, logger).Run(ctx)
		if err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		logger.Info("migrations completed", "applied", len(applied))

		st = supabase.NewDatabaseClient(db)
	}

	if cfg.SupabaseURL != "" && cfg.SupabasePublishableKey != "" {
		supabaseClient, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabasePublishableKey)
		if err != nil {
			log.Fatalf("Failed to initialize Supabase client: %v", err)
		}
		telemetry = supabase.NewTelemetryClient(supabaseClient)
		media = supabase.NewStorageClient(cfg.SupabaseURL, cfg.SupabasePublishableKey, cfg.SupabaseStorageBucket)
	} else {
		logger.Warn("Supabase not configured, telemetry and media stay in memory")
	}

	set := stages.NewSet(text, openaiClient, speech, media, cfg.TTSDefaultVoice)
	registry, err := set.Registry()
	if err != nil {
		log.Fatalf("Failed to build bot registry: %v", err)
	}

	// Video backends, tried in order
	var backends []render.VideoBackend
	if cfg.VideoEngineURL != "" {
		backends = append(backends, render.NewEngineClient(cfg.VideoEngineURL, cfg.VideoEngineTimeout))
	}
	backends = append(backends, render.NewComposeBackend(media))
	video := render.NewChain(logger, backends...)

	// Services
	reporter := recovery.NewReporter(telemetry, logger)
	renderSvc := services.NewRenderService(st, set, video, cache.New(cfg.RenderDedupTTL), reporter, logger,
		services.RenderServiceOptions{
			RetryAttempts: cfg.RecoveryMaxAttempts,
			RetryDelay:    cfg.RecoveryBaseDelay,
		})
	orch := pipeline.NewOrchestrator(st, telemetry, set, renderSvc, logger)
	production := pipeline.NewProduction(orch, st, set, logger, cfg.BatchSize)
	coordinator := batch.NewCoordinator(st, video, cfg.BatchSize, logger)

	// Orphaned job sweep
	sweeper := scheduler.NewSweeper(st, telemetry, cfg.StaleJobAfter, logger)
	sched, err := scheduler.New(cfg.SweepCronSpec, sweeper, logger)
	if err != nil {
		log.Fatalf("Failed to initialize scheduler: %v", err)
	}
	sched.Start()

	// Setup router
	router := handlers.NewRouter(cfg, handlers.Handlers{
		Episodes:   handlers.NewEpisodesHandler(orch, st, renderSvc, logger),
		Production: handlers.NewProductionHandler(production),
		Batch:      handlers.NewBatchHandler(coordinator),
		Bots:       handlers.NewBotsHandler(registry, logger),
		Jobs:       handlers.NewJobsHandler(st),
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	port := strings.TrimPrefix(cfg.Port, ":")
	if port == "" {
		port = "8080"
	}
	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		logger.Info("server starting", "port", port, "provider", cfg.LLMProvider)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// Let in-flight renders settle their job rows before exiting.
	done := make(chan struct{})
	go func() {
		renderSvc.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("background renders still running at exit")
	}

	logger.Info("server exited")
}
