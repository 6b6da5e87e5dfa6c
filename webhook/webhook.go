package webhook

import (
	stdcontext "context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"hrpulse/context"
)

// Dispatcher resolves callback decisions against the pending store.
type Dispatcher interface {
	Dispatch(callbackData string) error
}

// Server receives Telegram webhook updates and routes callback queries to
// the dispatcher. Only callback_query updates carry decisions; everything
// else is acknowledged and dropped.
type Server struct {
	context    *context.Context
	dispatcher Dispatcher
	httpServer *http.Server
}

func NewServer(appContext *context.Context, dispatcher Dispatcher, addr string) *Server {
	server := &Server{
		context:    appContext,
		dispatcher: dispatcher,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", server.handleUpdate)

	server.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server
}

// Register points Telegram at the public webhook URL, dropping any updates
// queued while the bot was down.
func (s *Server) Register(webhookURL string) error {
	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return fmt.Errorf("build webhook config: %w", err)
	}
	wh.DropPendingUpdates = true
	wh.AllowedUpdates = []string{"callback_query", "message"}

	if _, err := s.context.GetBot().Request(wh); err != nil {
		return fmt.Errorf("register webhook: %w", err)
	}

	log.Printf("[WEBHOOK] Registered webhook at %s", webhookURL)
	return nil
}

// Start serves the webhook endpoint in the background.
func (s *Server) Start() {
	log.Printf("[WEBHOOK] Starting webhook server on %s", s.httpServer.Addr)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[WEBHOOK] Error starting webhook server: %v", err)
		}
	}()
}

// Shutdown stops the webhook server, letting in-flight handlers finish.
func (s *Server) Shutdown(ctx stdcontext.Context) error {
	log.Println("[WEBHOOK] Shutting down webhook server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		log.Printf("[WEBHOOK] ERROR decoding update: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if update.CallbackQuery == nil {
		// Plain messages carry no decision
		w.WriteHeader(http.StatusOK)
		return
	}

	callback := update.CallbackQuery
	log.Printf("[WEBHOOK] Received callback %s: %s", callback.ID, callback.Data)

	err := s.dispatcher.Dispatch(callback.Data)

	// Answer the callback whatever the outcome so the client's loading
	// animation stops.
	answer := tgbotapi.NewCallback(callback.ID, answerText(err))
	if ansErr := s.context.AnswerCallbackQuery(answer); ansErr != nil {
		log.Printf("[WEBHOOK] ERROR answering callback %s: %v", callback.ID, ansErr)
	}

	if err != nil {
		log.Printf("[WEBHOOK] ERROR dispatching callback %s: %v", callback.ID, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func answerText(err error) string {
	if err != nil {
		return "Ошибка, попробуйте ещё раз"
	}
	return "Готово"
}
