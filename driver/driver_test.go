package driver

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrpulse/config"
	"hrpulse/context"
	"hrpulse/generator"
	"hrpulse/store"
)

const testChannelID int64 = -1001111111111

type fakeGenerator struct {
	draft generator.Draft
}

func (f *fakeGenerator) Generate() generator.Draft {
	return f.draft
}

type publishCall struct {
	ChatID   int64
	Text     string
	ImageURL string
}

type fakePublisher struct {
	calls []publishCall
	err   error
}

func (f *fakePublisher) Publish(chatID int64, text string, imageURL string) error {
	f.calls = append(f.calls, publishCall{ChatID: chatID, Text: text, ImageURL: imageURL})
	return f.err
}

// fakeBot captures review previews
type fakeBot struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: 1}, f.err
}

func (f *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func testDraft() generator.Draft {
	return generator.Draft{
		Text:      "💡 Доверие дороже денег.",
		ImageURL:  "https://source.unsplash.com/1200x630/?hr",
		Style:     "профессиональный совет",
		Topic:     "HR",
		CreatedAt: time.Now(),
	}
}

type testDriver struct {
	driver     *Driver
	publisher  *fakePublisher
	bot        *fakeBot
	store      *store.Store
	pendingDir string
}

func newTestDriver(t *testing.T, cfg *config.Config) testDriver {
	t.Helper()

	pendingDir := t.TempDir()
	pendingStore := store.NewStore(pendingDir, rand.New(rand.NewSource(11)))
	bot := &fakeBot{}

	appContext := &context.Context{
		Config: cfg,
		Store:  pendingStore,
	}
	appContext.SetBot(bot)

	pub := &fakePublisher{}
	return testDriver{
		driver:     NewDriver(appContext, &fakeGenerator{draft: testDraft()}, pub),
		publisher:  pub,
		bot:        bot,
		store:      pendingStore,
		pendingDir: pendingDir,
	}
}

func TestRunCycleDirect(t *testing.T) {
	td := newTestDriver(t, &config.Config{Channel_ID: testChannelID})

	td.driver.RunCycle("morning")

	pub := td.publisher
	require.Len(t, pub.calls, 2, "one publish per channel")

	// Telegram first, Zen second - the product requires this order
	assert.Equal(t, testChannelID, pub.calls[0].ChatID)
	assert.Equal(t, "💡 Доверие дороже денег.", pub.calls[0].Text)
	assert.Equal(t, "https://source.unsplash.com/1200x630/?hr", pub.calls[0].ImageURL)

	assert.Equal(t, config.ZenChannelID, pub.calls[1].ChatID)
	assert.Equal(t, "🔥 💡 Доверие дороже денег.", pub.calls[1].Text)
	assert.Equal(t, "https://source.unsplash.com/1200x630/?hr", pub.calls[1].ImageURL)

	assert.Empty(t, td.bot.sent, "direct mode sends no review previews")
}

func TestRunCycleDirectContinuesAfterPrimaryFailure(t *testing.T) {
	td := newTestDriver(t, &config.Config{Channel_ID: testChannelID})
	td.publisher.err = assert.AnError

	td.driver.RunCycle("day")

	// Both publishes are attempted even when the first one fails
	require.Len(t, td.publisher.calls, 2)
	assert.Equal(t, testChannelID, td.publisher.calls[0].ChatID)
	assert.Equal(t, config.ZenChannelID, td.publisher.calls[1].ChatID)
}

func TestRunCycleReview(t *testing.T) {
	cfg := &config.Config{Channel_ID: testChannelID, Review_Chat_ID: 999}
	td := newTestDriver(t, cfg)

	td.driver.RunCycle("evening")

	assert.Empty(t, td.publisher.calls, "review mode must not publish directly")

	// A pending record was staged with the adapted Zen variant
	id, record := td.store.LoadLatest()
	require.NotNil(t, record)
	assert.Equal(t, "HR", record.Theme)
	assert.Equal(t, "evening", record.TimeSlot)
	assert.Equal(t, "💡 Доверие дороже денег.", record.TelegramPost)
	assert.Equal(t, "🔥 💡 Доверие дороже денег.", record.ZenPost)
	assert.Equal(t, record.TelegramImage, record.ZenImage)

	// The reviewer got a preview with the four decision buttons
	require.Len(t, td.bot.sent, 1)
	preview, ok := td.bot.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(999), preview.ChatID)
	assert.Contains(t, preview.Text, record.TelegramPost)
	assert.Contains(t, preview.Text, record.ZenPost)

	keyboard, ok := preview.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)

	var callbacks []string
	for _, row := range keyboard.InlineKeyboard {
		for _, button := range row {
			require.NotNil(t, button.CallbackData)
			callbacks = append(callbacks, *button.CallbackData)
		}
	}
	assert.ElementsMatch(t, []string{
		"approve_tg:" + id,
		"reject_tg:" + id,
		"approve_zen:" + id,
		"reject_zen:" + id,
	}, callbacks)
}

func TestRunCycleReviewSweepsAgedRecords(t *testing.T) {
	cfg := &config.Config{Channel_ID: testChannelID, Review_Chat_ID: 999}
	td := newTestDriver(t, cfg)

	staleID, err := td.store.Stage(&store.Record{Theme: "PR", TimeSlot: "morning"})
	require.NoError(t, err)

	// Push the stale file past the sweep cutoff
	aged := time.Now().Add(-sweepMaxAge - time.Hour)
	stalePath := filepath.Join(td.pendingDir, "pending_"+staleID+".json")
	require.NoError(t, os.Chtimes(stalePath, aged, aged))

	td.driver.RunCycle("day")

	assert.Nil(t, td.store.Load(staleID), "aged record must be swept at cycle start")
}

func TestReviewKeyboardLayout(t *testing.T) {
	keyboard := reviewKeyboard("42_abcd")

	require.Len(t, keyboard.InlineKeyboard, 2)
	for _, row := range keyboard.InlineKeyboard {
		assert.Len(t, row, 2)
		for _, button := range row {
			require.NotNil(t, button.CallbackData)
			assert.True(t, strings.HasSuffix(*button.CallbackData, ":42_abcd"))
		}
	}
}
