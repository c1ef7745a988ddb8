package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/batch"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/bridge"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/capture"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/cmd/inspector/handlers"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/database"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/export"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/extractor"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/grounding"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/hostpage"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/interceptor"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/overview"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/pipeline"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/session"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/settings"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Launch the browser and start the HTTP API",
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	// Load configuration
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log := logger.NewLogrusLogger(cfg.Log.Level, cfg.Log.Format)
	log.Info(ctx, "starting inspector", map[string]interface{}{
		"version": Version,
		"commit":  Commit,
		"date":    BuildDate,
	})

	// Connect to database
	db, err := database.Connect(cfg.Database.toDatabase())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	defer sqlDB.Close()

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(sqlDB, cfg.Database.Driver); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	log.Info(ctx, "database connected", map[string]interface{}{
		"driver": cfg.Database.Driver,
	})

	// Initialize stores
	state := session.NewState(session.NewGormStore(db, log))
	keys := settings.NewService(state.Store(), cfg.Settings.Secret, log)

	blobs, err := storage.New(ctx, cfg.Storage.toStorage())
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	publisher := export.NewPublisher(blobs, log)

	// Bridge between page-side pipelines and the controller
	var blockKey []byte
	if cfg.Bridge.BlockKey != "" {
		blockKey = []byte(cfg.Bridge.BlockKey)
	}
	br := bridge.New([]byte(cfg.Bridge.HashKey), blockKey, cfg.Bridge.Buffer, log)
	port, err := br.Port()
	if err != nil {
		return fmt.Errorf("failed to open bridge port: %w", err)
	}
	token, err := br.Token()
	if err != nil {
		return fmt.Errorf("failed to issue bridge token: %w", err)
	}

	x := extractor.New(log)
	chatPipe := pipeline.New(x, port, log)
	searchPipe := pipeline.New(x, port, log)
	chatInterceptor, _ := chatPipe.Interceptors()
	_, searchInterceptor := searchPipe.Interceptors()

	grounder := grounding.New(cfg.Grounding.toGrounding(), keys, log)

	// Browser and pages
	browser, err := hostpage.Launch(ctx, cfg.Browser.toHostPage(), log)
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	defer browser.Close()

	batchCfg := cfg.Batch.toBatch()
	chatPage, err := browser.Open(ctx, batchCfg.FreshURL)
	if err != nil {
		return fmt.Errorf("failed to open chat page: %w", err)
	}
	searchPage, err := browser.Open(ctx, cfg.Browser.SearchURL)
	if err != nil {
		return fmt.Errorf("failed to open search page: %w", err)
	}

	checker := overview.NewChecker(browser, overview.NewBackgroundDetector(), cfg.Overview.CheckWait, log)

	orch, err := batch.NewOrchestrator(batchCfg, chatPage, state, log)
	if err != nil {
		return fmt.Errorf("failed to create batch orchestrator: %w", err)
	}
	defer orch.Close()

	controller := pipeline.NewController(orch, state, checker, log)

	analyzer := overview.NewAnalyzer(overview.NewDetector(), searchPage, grounder,
		func(ctx context.Context, d capture.SearchDisplay) {
			msg, err := bridge.NewSearchDataMessage(d)
			if err != nil {
				log.Error(ctx, "failed to encode search display", map[string]interface{}{
					"error": err.Error(),
				})
				return
			}
			port.Send(msg)
		},
		cfg.Overview.DetectDelay, log)
	runner := overview.NewBatchRunner(keys, grounder, checker, cfg.Overview.BatchDelay, log)

	// Chat page traffic: read over devtools, or replayed through the Go
	// transport when hijacking.
	chatTrackers := []*interceptor.Tracker{interceptor.NewTracker(chatInterceptor)}
	if cfg.Browser.Hijack {
		transport := interceptor.NewTransport(http.DefaultTransport, chatInterceptor)
		hijacker, err := hostpage.Hijack(ctx, chatPage, transport, log)
		if err != nil {
			return fmt.Errorf("failed to hijack chat page: %w", err)
		}
		defer hijacker.Stop()
		chatTrackers = nil
	}

	chatTap, err := hostpage.Attach(ctx, chatPage, chatTrackers, hostpage.Hooks{
		OnNavigate: func(ctx context.Context, url string) { chatPipe.Reset() },
		OnLoad:     func(ctx context.Context, url string) { orch.OnPageLoad(ctx) },
	}, log)
	if err != nil {
		return fmt.Errorf("failed to attach to chat page: %w", err)
	}
	defer func() {
		cancel()
		chatTap.Wait()
	}()

	searchTap, err := hostpage.Attach(ctx, searchPage, []*interceptor.Tracker{interceptor.NewTracker(searchInterceptor)}, hostpage.Hooks{
		OnNavigate:  func(ctx context.Context, url string) { searchPipe.Reset() },
		OnLoad:      func(ctx context.Context, url string) { analyzer.HandleURL(ctx, url) },
		OnURLChange: func(ctx context.Context, url string) { analyzer.HandleURL(ctx, url) },
	}, log)
	if err != nil {
		return fmt.Errorf("failed to attach to search page: %w", err)
	}
	defer func() {
		cancel()
		searchTap.Wait()
	}()

	endpoint := cfg.bridgeEndpoint()
	for _, p := range []*hostpage.Page{chatPage, searchPage} {
		if err := hostpage.InjectBridge(ctx, p, endpoint, token); err != nil {
			return fmt.Errorf("failed to inject bridge script: %w", err)
		}
	}

	// A run persisted by a previous process resumes here.
	orch.OnPageLoad(ctx)

	router := handlers.NewRouter(handlers.Services{
		Bridge:         br,
		History:        state,
		Batch:          orch,
		Keys:           keys,
		KeyTester:      grounder,
		Checker:        checker,
		SearchBatch:    runner,
		Latest:         controller,
		Publisher:      publisher,
		AllowedOrigins: cfg.Bridge.AllowedOrigins,
	}, log)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info(gctx, "server listening", map[string]interface{}{
			"address": server.Addr,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		br.Run(gctx, controller.Handle)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info(ctx, "shutting down server", nil)

		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info(context.Background(), "server stopped", nil)
	return nil
}
