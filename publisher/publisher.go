package publisher

import (
	"log"
	"regexp"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"hrpulse/bugsink"
	"hrpulse/context"
	"hrpulse/metrics"
)

// Publisher delivers posts to Telegram channels.
type Publisher struct {
	context *context.Context
}

func NewPublisher(context *context.Context) *Publisher {
	log.Println("[PUBLISHER] Creating new channel publisher")
	return &Publisher{
		context: context,
	}
}

// Publish sends a photo post with an HTML caption to the channel. When
// Telegram refuses the photo send, it degrades once to a plain text message.
// Returns nil iff either send succeeded.
func (p *Publisher) Publish(chatID int64, text string, imageURL string) error {
	startTime := time.Now()

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(imageURL))
	photo.Caption = text
	photo.ParseMode = tgbotapi.ModeHTML

	_, err := p.context.GetBot().Send(photo)
	if err == nil {
		log.Printf("[PUBLISHER] Successfully sent photo post to chat %d (duration: %v)",
			chatID, time.Since(startTime))
		metrics.RecordPublish("photo", "sent", "none")
		return nil
	}

	log.Printf("[PUBLISHER] ERROR sending photo post to chat %d: %v, falling back to text",
		chatID, err)
	metrics.RecordPublish("photo", "failed", strconv.Itoa(extractErrorCode(err)))

	msg := tgbotapi.NewMessage(chatID, text)

	_, err = p.context.GetBot().Send(msg)
	if err != nil {
		log.Printf("[PUBLISHER] ERROR sending text post to chat %d: %v (duration: %v)",
			chatID, err, time.Since(startTime))
		metrics.RecordPublish("text", "failed", strconv.Itoa(extractErrorCode(err)))
		bugsink.CaptureError(err, map[string]interface{}{
			"component": "publisher",
			"chat_id":   chatID,
		})
		return err
	}

	log.Printf("[PUBLISHER] Successfully sent text post to chat %d (duration: %v)",
		chatID, time.Since(startTime))
	metrics.RecordPublish("text", "sent", "none")
	return nil
}

// httpErrorCodeRegex matches HTTP status codes (4xx or 5xx) in error messages
// without matching phone numbers or years
var httpErrorCodeRegex = regexp.MustCompile(`(?:^|\s|:|\(|-)([4-5]\d{2})(?:\s|$|:|!|\)|,)`)

// extractErrorCode extracts the HTTP error code from a Telegram API error
func extractErrorCode(err error) int {
	if err == nil {
		return 200
	}

	matches := httpErrorCodeRegex.FindStringSubmatch(err.Error())
	if len(matches) >= 2 {
		if code, parseErr := strconv.Atoi(matches[1]); parseErr == nil {
			return code
		}
	}

	return 0 // Unknown error - no HTTP code found
}
