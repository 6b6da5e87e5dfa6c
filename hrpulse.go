package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"hrpulse/bugsink"
	"hrpulse/config"
	hrpulseContext "hrpulse/context"
	"hrpulse/dispatcher"
	"hrpulse/driver"
	"hrpulse/generator"
	"hrpulse/metrics"
	"hrpulse/publisher"
	"hrpulse/scheduler"
	"hrpulse/store"
	"hrpulse/webhook"
)

const PID_FILE = "hrpulse_bot.pid"

// Pending approval records live next to the binary
const PENDING_DIR = "."

// createPidFile creates a PID file and locks it to prevent multiple instances
func createPidFile() error {
	// Check if PID file already exists
	if _, err := os.Stat(PID_FILE); err == nil {
		// PID file exists, check if process is still running
		pidBytes, err := os.ReadFile(PID_FILE)
		if err == nil {
			if pid, err := strconv.Atoi(string(pidBytes)); err == nil {
				if process, err := os.FindProcess(pid); err == nil {
					// Signal 0 checks for existence without touching the process
					if err := process.Signal(syscall.Signal(0)); err == nil {
						return fmt.Errorf("HRPulse bot is already running with PID %d. Stop the existing instance first.", pid)
					}
				}
			}
		}
		log.Printf("[MAIN] Found stale PID file, removing it")
		os.Remove(PID_FILE)
	}

	currentPid := os.Getpid()
	if err := os.WriteFile(PID_FILE, []byte(fmt.Sprintf("%d", currentPid)), 0644); err != nil {
		return fmt.Errorf("failed to create PID file: %v", err)
	}

	log.Printf("[MAIN] Created PID file %s with PID %d", PID_FILE, currentPid)
	return nil
}

// removePidFile removes the PID file on shutdown
func removePidFile() {
	if err := os.Remove(PID_FILE); err != nil {
		log.Printf("[MAIN] Warning: failed to remove PID file: %v", err)
	} else {
		log.Printf("[MAIN] Removed PID file %s", PID_FILE)
	}
}

func initContext(rnd *rand.Rand) *hrpulseContext.Context {
	log.Println("[MAIN] Initializing application context")

	log.Printf("[MAIN] Using Telegram token: %s...", config.C().Bot_Token[:10])

	appContext := &hrpulseContext.Context{}

	// Initialize Telegram Bot. The client timeout bounds every publish call.
	log.Println("[MAIN] Connecting to Telegram Bot API...")
	bot, err := tgbotapi.NewBotAPIWithClient(config.C().Bot_Token, tgbotapi.APIEndpoint,
		&http.Client{Timeout: 15 * time.Second})
	if err != nil {
		log.Fatalf("[MAIN] Failed to connect to Telegram: %v", err)
	}
	log.Printf("[MAIN] Authorized on Telegram account: %s", bot.Self.UserName)

	appContext.SetBot(bot)
	appContext.Config = config.C()
	appContext.Store = store.NewStore(PENDING_DIR, rnd)

	return appContext
}

func setupGracefulShutdown(sched *scheduler.Scheduler, srv *webhook.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("[MAIN] Received signal %v, starting graceful shutdown", sig)

		// Stop accepting new cycles; the in-flight one completes bounded
		// by the per-call timeouts.
		sched.Stop()

		if srv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				log.Printf("[MAIN] Error shutting down webhook server: %v", err)
			}
		}

		bugsink.Close()
		removePidFile()

		log.Println("[MAIN] Graceful shutdown completed")
		os.Exit(0)
	}()
}

func main() {
	// Single random source for style/topic/glyph/image/fallback selection
	// and approval id suffixes
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	if err := config.Init(); err != nil {
		log.Fatalf("[MAIN] %v", err)
	}

	// Create PID file to prevent multiple instances
	if err := createPidFile(); err != nil {
		log.Fatalf("[MAIN] %v", err)
	}

	if err := metrics.Init(); err != nil {
		log.Fatalf("[MAIN] Failed to initialize metrics: %v", err)
	}

	if err := bugsink.Init(); err != nil {
		log.Fatalf("[MAIN] Failed to initialize BugSink: %v", err)
	}

	appContext := initContext(rnd)

	pub := publisher.NewPublisher(appContext)
	gen := generator.NewGenerator(config.C().Gemini_API_Key, rnd)
	drv := driver.NewDriver(appContext, gen, pub)

	sched, err := scheduler.NewScheduler(config.C().Timezone, drv.RunCycle)
	if err != nil {
		log.Fatalf("[MAIN] Failed to create scheduler: %v", err)
	}

	// The webhook server only runs when a public URL is configured;
	// without it the approval path is simply inactive.
	var srv *webhook.Server
	if config.C().Webhook_URL != "" {
		disp := dispatcher.NewDispatcher(appContext, pub)
		srv = webhook.NewServer(appContext, disp, config.C().Webhook_Addr)
		if err := srv.Register(config.C().Webhook_URL); err != nil {
			log.Fatalf("[MAIN] Failed to register webhook: %v", err)
		}
		srv.Start()
	}

	setupGracefulShutdown(sched, srv)

	sched.Start()
	log.Println("[MAIN] HRPulse bot started")
	log.Println("[MAIN] Press Ctrl+C to stop")

	// Keep the main goroutine alive
	forever := make(chan bool)
	<-forever
}
