package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/rahul/sutra/internal/agent"
	"github.com/rahul/sutra/internal/events"
	"github.com/rahul/sutra/internal/governance"
	"github.com/rahul/sutra/internal/observability"
	"github.com/rahul/sutra/internal/oracle"
	"github.com/rahul/sutra/internal/prompts"
	"github.com/rahul/sutra/internal/server"
	"github.com/rahul/sutra/internal/store"
	"github.com/rahul/sutra/internal/tools"
	"github.com/rahul/sutra/pkg/config"
)

func main() {
	observability.PrintBanner()
	observability.InitializeTerminal()

	// Route all log output through the terminal mutex so it never
	// interrupts the dashboard's cursor save/restore sequence.
	log.SetOutput(observability.NewTermWriter())

	cfg := config.LoadConfig("config.yaml")

	runs, err := store.NewRunStore(cfg.Memory.Path)
	if err != nil {
		log.Fatal(err)
	}

	library := prompts.NewLibrary(cfg.Oracle.PromptsDir)
	logger := observability.NewLogger()

	// Initialize the oracle (using default enabled provider)
	pName, pCfg := cfg.GetDefaultProvider()
	if pName == "" {
		log.Fatal("No enabled provider found in config")
	}

	timeout := time.Duration(cfg.Oracle.TimeoutSeconds) * time.Second

	var brain oracle.Client
	switch pName {
	case "gemini":
		brain = oracle.NewGemini(pCfg.APIKey, pCfg.Model, pCfg.BaseURL, timeout, library, logger)
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(pCfg.APIKey),
			openai.WithModel(pCfg.Model),
		}
		if pCfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(pCfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			log.Fatal(err)
		}
		brain = oracle.NewLangModel(llm, timeout, library, logger)
	default:
		log.Fatalf("Provider %s not yet implemented in main", pName)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize step providers
	registry := &tools.Registry{}

	switch cfg.Messaging.Backend {
	case "slack":
		if cfg.Messaging.SlackToken != "" {
			registry.Messenger = tools.NewSlackMessenger(cfg.Messaging.SlackToken)
		}
	case "telegram":
		if cfg.Messaging.TelegramToken != "" {
			tg, err := tools.NewTelegramMessenger(cfg.Messaging.TelegramToken)
			if err != nil {
				log.Printf("Warning: Failed to initialize telegram messenger: %v", err)
			} else {
				registry.Messenger = tg
			}
		}
	case "discord":
		if cfg.Messaging.DiscordToken != "" {
			dc, err := tools.NewDiscordMessenger(cfg.Messaging.DiscordToken)
			if err != nil {
				log.Printf("Warning: Failed to initialize discord messenger: %v", err)
			} else {
				registry.Messenger = dc
			}
		}
	}
	if registry.Messenger == nil {
		log.Printf("Warning: No messenger configured for backend %q; messaging steps will report failure", cfg.Messaging.Backend)
	}

	registry.Knowledge = tools.NewDocsKnowledge(brain, cfg.App.DocsDir)

	search, err := tools.NewWebSearch(10)
	if err != nil {
		log.Printf("Warning: Failed to initialize web search: %v", err)
	} else {
		registry.Search = search
	}

	cal, err := tools.NewGoogleCalendar(ctx, cfg.Calendar.CredentialsFile, cfg.Calendar.TokenFile, cfg.Calendar.Timezone)
	if err != nil {
		log.Printf("Warning: Failed to initialize calendar: %v", err)
	} else {
		registry.Calendar = cal
	}

	if cfg.Twilio.AccountSID != "" && cfg.Twilio.AuthToken != "" {
		registry.Communicator = tools.NewTwilioCommunicator(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber)
	}

	gov := governance.NewDefaultPolicyEngine()
	for _, name := range cfg.Governance.DenyCapabilities {
		gov.DenyCapability(name)
	}
	for _, pattern := range cfg.Governance.DenyActions {
		if err := gov.DenyAction(pattern); err != nil {
			log.Printf("Warning: Ignoring invalid deny pattern %q: %v", pattern, err)
		}
	}

	hub := events.NewHub()
	audit := observability.NewAuditLog("logs")
	go audit.Run(ctx, hub)

	executor := &agent.StepExecutor{
		Oracle:    brain,
		Providers: registry,
		Policy:    gov,
		Logger:    logger,
		SimDelay:  time.Duration(cfg.Engine.SimulatedDelayMS) * time.Millisecond,
	}

	orchestrator := &agent.Orchestrator{
		Oracle:   brain,
		Executor: executor,
		Events:   hub,
		Store:    runs,
		Logger:   logger,
		Pacing:   time.Duration(cfg.Engine.StepDelayMS) * time.Millisecond,
	}

	scheduler := agent.NewScheduler(orchestrator, runs)
	go scheduler.Start(ctx)

	// Start Live Resource Dashboard (1-second updates)
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.PrintLiveStatus()
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.Heartbeat()
				logger.LogHeartbeat()
			}
		}
	}()

	// gin's debug route dump writes straight to stdout, bypassing the
	// terminal mutex.
	gin.SetMode(gin.ReleaseMode)

	api := server.NewServer(orchestrator, runs, hub)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: api.SetupRoutes(),
	}

	// Start the API server in a goroutine so we can wait for context in the
	// main loop
	go func() {
		log.Printf("API server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("\033[91m[ FAIL ] SERVER CRITICAL ERROR: %v\033[0m", err)
			stop() // stop caller if the server dies
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down API server: %v", err)
	}
	hub.Close()

	// Reset terminal aesthetics
	observability.CleanupTerminal()

	// Give a short time for final logs/syncs
	time.Sleep(500 * time.Millisecond)
	log.Println("\033[95m[ EXIT ] CORE DE-INITIALIZED. GOODBYE.\033[0m")
}
