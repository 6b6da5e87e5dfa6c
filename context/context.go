package context

import (
	"hrpulse/config"
	"hrpulse/store"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotAPI is the subset of the Telegram client the application uses.
// Kept as an interface so tests can substitute a mock.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Context struct {
	bot    BotAPI // private - only accessible through methods
	Config *config.Config
	Store  *store.Store
}

// AnswerCallbackQuery acknowledges a callback query so the client stops
// showing the loading animation.
func (context *Context) AnswerCallbackQuery(callback tgbotapi.CallbackConfig) error {
	log.Printf("[CONTEXT] Answering callback query %s", callback.CallbackQueryID)

	_, err := context.bot.Request(callback)
	return err
}

// GetBot returns the bot instance for outbound Telegram calls
func (context *Context) GetBot() BotAPI {
	return context.bot
}

// SetBot sets the bot instance - used during initialization
func (context *Context) SetBot(bot BotAPI) {
	context.bot = bot
}
