package driver

import (
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"hrpulse/adapter"
	"hrpulse/config"
	"hrpulse/context"
	"hrpulse/dispatcher"
	"hrpulse/generator"
	"hrpulse/metrics"
	"hrpulse/store"
)

// Pending records older than this are swept before each review cycle.
const sweepMaxAge = 72 * time.Hour

// Generator produces a post draft.
type Generator interface {
	Generate() generator.Draft
}

// Publisher delivers a post to a channel.
type Publisher interface {
	Publish(chatID int64, text string, imageURL string) error
}

// Driver glues one scheduled cycle together: generate, publish to the
// Telegram channel, adapt, publish to the Zen channel. In review mode the
// publishing is deferred behind a staged approval instead.
type Driver struct {
	context   *context.Context
	generator Generator
	publisher Publisher
}

func NewDriver(context *context.Context, generator Generator, publisher Publisher) *Driver {
	log.Println("[DRIVER] Creating new cycle driver")
	return &Driver{
		context:   context,
		generator: generator,
		publisher: publisher,
	}
}

// RunCycle executes one publishing cycle for the named slot ("morning",
// "day", "evening"). Publish failures are logged, never propagated: the
// scheduler must keep running whatever happens here.
func (d *Driver) RunCycle(slot string) {
	startTime := time.Now()
	log.Printf("[DRIVER] Starting %s publishing cycle", slot)

	if d.context.Config.Review_Chat_ID != 0 {
		d.runReviewCycle(slot)
	} else {
		d.runDirectCycle(slot)
	}

	duration := time.Since(startTime)
	metrics.RecordCycle(slot, duration)
	log.Printf("[DRIVER] Completed %s publishing cycle (duration: %v)", slot, duration)
}

func (d *Driver) runDirectCycle(slot string) {
	draft := d.generator.Generate()

	// The Telegram post must be visible before its Zen variant, so the
	// primary send always completes first.
	if err := d.publisher.Publish(d.context.Config.Channel_ID, draft.Text, draft.ImageURL); err != nil {
		log.Printf("[DRIVER] ERROR publishing to Telegram channel: %v", err)
	}

	zenText := adapter.Adapt(draft.Text)

	if err := d.publisher.Publish(config.ZenChannelID, zenText, draft.ImageURL); err != nil {
		log.Printf("[DRIVER] ERROR publishing to Zen channel: %v", err)
	}
}

func (d *Driver) runReviewCycle(slot string) {
	if removed := d.context.Store.Sweep(sweepMaxAge); removed > 0 {
		log.Printf("[DRIVER] Swept %d aged pending posts", removed)
	}

	draft := d.generator.Generate()
	zenText := adapter.Adapt(draft.Text)

	record := &store.Record{
		Theme:         draft.Topic,
		TimeSlot:      slot,
		TelegramPost:  draft.Text,
		TelegramImage: draft.ImageURL,
		ZenPost:       zenText,
		ZenImage:      draft.ImageURL,
	}

	id, err := d.context.Store.Stage(record)
	if err != nil {
		log.Printf("[DRIVER] ERROR staging pending post: %v", err)
		return
	}

	preview := tgbotapi.NewMessage(d.context.Config.Review_Chat_ID,
		"Пост на согласование ("+slot+"):\n\n"+draft.Text+"\n\n— Zen-вариант —\n\n"+zenText)
	preview.ReplyMarkup = reviewKeyboard(id)

	if _, err := d.context.GetBot().Send(preview); err != nil {
		log.Printf("[DRIVER] ERROR sending review preview for %s: %v", id, err)
		return
	}

	log.Printf("[DRIVER] Staged pending post %s and sent review preview", id)
}

// reviewKeyboard builds the four decision buttons for a staged post.
func reviewKeyboard(id string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ В Telegram", dispatcher.ActionApproveTg+":"+id),
			tgbotapi.NewInlineKeyboardButtonData("❌ Telegram", dispatcher.ActionRejectTg+":"+id),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ В Zen", dispatcher.ActionApproveZen+":"+id),
			tgbotapi.NewInlineKeyboardButtonData("❌ Zen", dispatcher.ActionRejectZen+":"+id),
		),
	)
}
