package webhook

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrpulse/config"
	"hrpulse/context"
)

type fakeDispatcher struct {
	dispatched []string
	err        error
}

func (f *fakeDispatcher) Dispatch(callbackData string) error {
	f.dispatched = append(f.dispatched, callbackData)
	return f.err
}

// fakeBot records callback answers sent through Request
type fakeBot struct {
	requests []tgbotapi.Chattable
	err      error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return tgbotapi.Message{}, nil
}

func (f *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, f.err
}

func newTestServer(t *testing.T) (*Server, *fakeDispatcher, *fakeBot) {
	t.Helper()

	bot := &fakeBot{}
	appContext := &context.Context{Config: &config.Config{}}
	appContext.SetBot(bot)

	disp := &fakeDispatcher{}
	return NewServer(appContext, disp, ":0"), disp, bot
}

func postUpdate(t *testing.T, server *Server, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	server.handleUpdate(rec, req)
	return rec
}

func TestHandleUpdateCallback(t *testing.T) {
	server, disp, bot := newTestServer(t)

	rec := postUpdate(t, server,
		`{"update_id":1,"callback_query":{"id":"cb-42","data":"approve_tg:abc"}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"approve_tg:abc"}, disp.dispatched)

	// The callback query is acknowledged
	require.Len(t, bot.requests, 1)
	answer, ok := bot.requests[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.Equal(t, "cb-42", answer.CallbackQueryID)
}

func TestHandleUpdateDispatchError(t *testing.T) {
	server, disp, bot := newTestServer(t)
	disp.err = assert.AnError

	rec := postUpdate(t, server,
		`{"update_id":1,"callback_query":{"id":"cb-43","data":"approve_tg:missing"}}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	// Even a failed dispatch answers the callback so the client's
	// loading animation stops
	require.Len(t, bot.requests, 1)
}

func TestHandleUpdatePlainMessage(t *testing.T) {
	server, disp, bot := newTestServer(t)

	rec := postUpdate(t, server,
		`{"update_id":2,"message":{"message_id":5,"text":"привет"}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, disp.dispatched, "plain messages carry no decision")
	assert.Empty(t, bot.requests)
}

func TestHandleUpdateMalformedBody(t *testing.T) {
	server, disp, _ := newTestServer(t)

	rec := postUpdate(t, server, `{"update_id": broken`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, disp.dispatched)
}

func TestRegister(t *testing.T) {
	server, _, bot := newTestServer(t)

	err := server.Register("https://bot.example.com/hook")

	require.NoError(t, err)
	require.Len(t, bot.requests, 1)

	wh, ok := bot.requests[0].(tgbotapi.WebhookConfig)
	require.True(t, ok)
	assert.Equal(t, "https://bot.example.com/hook", wh.URL.String())
	assert.True(t, wh.DropPendingUpdates)
	assert.Equal(t, []string{"callback_query", "message"}, wh.AllowedUpdates)
}

func TestRegisterFailure(t *testing.T) {
	server, _, bot := newTestServer(t)
	bot.err = assert.AnError

	err := server.Register("https://bot.example.com/hook")

	assert.Error(t, err)
}
