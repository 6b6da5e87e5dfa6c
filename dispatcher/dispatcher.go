package dispatcher

import (
	"fmt"
	"log"
	"strings"

	"hrpulse/config"
	"hrpulse/context"
	"hrpulse/metrics"
)

// Callback actions carried in inline button callback_data as
// "<action>:<approval_id>".
const (
	ActionApproveTg  = "approve_tg"
	ActionApproveZen = "approve_zen"
	ActionRejectTg   = "reject_tg"
	ActionRejectZen  = "reject_zen"
)

// Publisher is the outbound side the dispatcher drives on approval.
type Publisher interface {
	Publish(chatID int64, text string, imageURL string) error
}

// Dispatcher resolves approval callbacks against the pending store.
type Dispatcher struct {
	context   *context.Context
	publisher Publisher
}

func NewDispatcher(context *context.Context, publisher Publisher) *Dispatcher {
	log.Println("[DISPATCHER] Creating new callback dispatcher")
	return &Dispatcher{
		context:   context,
		publisher: publisher,
	}
}

// Dispatch processes one callback decision. On approve it publishes the
// stored post to the matching channel; on reject it drops the record.
// When the referenced record is gone, the most recently staged one is used
// instead (the reviewer may be answering an older preview message).
func (d *Dispatcher) Dispatch(callbackData string) error {
	log.Printf("[DISPATCHER] Processing callback: %s", callbackData)

	action, approvalID, found := strings.Cut(callbackData, ":")
	if !found {
		return fmt.Errorf("malformed callback data %q: missing separator", callbackData)
	}

	switch action {
	case ActionApproveTg, ActionApproveZen, ActionRejectTg, ActionRejectZen:
	default:
		return fmt.Errorf("unknown callback action %q", action)
	}

	record := d.context.Store.Load(approvalID)
	if record == nil {
		log.Printf("[DISPATCHER] No pending record %s, falling back to latest", approvalID)
		latestID, latest := d.context.Store.LoadLatest()
		if latest == nil {
			metrics.RecordCallback(action, "failed")
			return fmt.Errorf("no pending records on disk for callback %q", callbackData)
		}
		approvalID, record = latestID, latest
	}

	var chatID int64
	var text, imageURL string

	switch action {
	case ActionApproveTg, ActionRejectTg:
		chatID = d.context.Config.Channel_ID
		text, imageURL = record.TelegramPost, record.TelegramImage
	case ActionApproveZen, ActionRejectZen:
		chatID = config.ZenChannelID
		text, imageURL = record.ZenPost, record.ZenImage
	}

	if action == ActionRejectTg || action == ActionRejectZen {
		log.Printf("[DISPATCHER] Rejected pending post %s (%s)", approvalID, action)
		if err := d.context.Store.Forget(approvalID); err != nil {
			log.Printf("[DISPATCHER] ERROR forgetting rejected post %s: %v", approvalID, err)
		}
		metrics.RecordCallback(action, "ok")
		return nil
	}

	if err := d.publisher.Publish(chatID, text, imageURL); err != nil {
		metrics.RecordCallback(action, "failed")
		return fmt.Errorf("publish approved post %s: %w", approvalID, err)
	}

	// The record is retained after a successful approve: only an explicit
	// reject or the age sweep removes it.
	log.Printf("[DISPATCHER] Approved and published pending post %s (%s) to chat %d",
		approvalID, action, chatID)
	metrics.RecordCallback(action, "ok")
	return nil
}
