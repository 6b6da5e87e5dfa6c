package generator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"hrpulse/bugsink"
	"hrpulse/metrics"
)

const (
	defaultModel   = "gemini-2.0-flash"
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	maxPostLength = 250
)

// Closed vocabularies the daily posts are drawn from. Style and topic shape
// the prompt; glyphs decorate the final text.
var styles = []string{
	"профессиональный совет",
	"неочевидный факт",
	"вопрос для размышления",
	"практический лайфхак",
	"цитата с комментарием",
	"миф и правда",
}

var topics = []string{
	"HR",
	"PR",
	"HR и PR",
	"работодатель",
	"бренд",
	"команда",
	"карьера",
	"репутация",
}

var glyphs = []string{"💡", "🚀", "🎯", "🔥", "✨", "📈", "🧠", "⚡", "🌟", "💬"}

var images = []string{
	"https://source.unsplash.com/1200x630/?hr",
	"https://source.unsplash.com/1200x630/?office",
	"https://source.unsplash.com/1200x630/?career",
	"https://source.unsplash.com/1200x630/?team",
	"https://source.unsplash.com/1200x630/?business",
	"https://source.unsplash.com/1200x630/?success",
}

// Fallback posts used when the backend is unreachable or returns garbage.
// Already decorated, ready to publish as-is.
var fallbacks = []string{
	"💡 Сильный HR-бренд начинается не с вакансий, а с того, что сотрудники рассказывают о компании друзьям.",
	"🎯 Репутация работодателя строится годами, а рушится одним скандалом. Проверяйте, что о вас пишут.",
	"🚀 Лучший PR для компании — это команда, которая гордится своей работой.",
	"🧠 Неочевидный факт: кандидаты читают отзывы о работодателе чаще, чем описание вакансии.",
	"✨ Карьера — это марафон. Скорость важна меньше, чем направление.",
}

// Draft is a generated post with its chosen image, immutable once produced.
type Draft struct {
	Text      string
	ImageURL  string
	Style     string
	Topic     string
	CreatedAt time.Time
}

// Generator produces post drafts from the Gemini backend. It never fails:
// any backend problem degrades to a sample from the fallback pool.
type Generator struct {
	apiKey     string
	model      string
	baseURL    string
	rnd        *rand.Rand
	httpClient *http.Client
}

// Option configures a Generator.
type Option func(*Generator)

// WithModel overrides the Gemini model.
func WithModel(model string) Option {
	return func(g *Generator) {
		g.model = model
	}
}

// WithBaseURL overrides the backend base URL (used by tests).
func WithBaseURL(url string) Option {
	return func(g *Generator) {
		g.baseURL = url
	}
}

// NewGenerator creates a generator. All randomness (style, topic, glyph,
// image and fallback selection) is drawn from rnd so tests can seed it.
func NewGenerator(apiKey string, rnd *rand.Rand, opts ...Option) *Generator {
	g := &Generator{
		apiKey:     apiKey,
		model:      defaultModel,
		baseURL:    defaultBaseURL,
		rnd:        rnd,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces one post draft. The random draws happen in a fixed
// order (style, topic, glyph, image) before the backend call, so a seeded
// generator is fully deterministic against a stubbed backend.
func (g *Generator) Generate() Draft {
	style := styles[g.rnd.Intn(len(styles))]
	topic := topics[g.rnd.Intn(len(topics))]
	glyph := glyphs[g.rnd.Intn(len(glyphs))]
	image := images[g.rnd.Intn(len(images))]

	log.Printf("[GENERATOR] Generating post: style=%q, topic=%q", style, topic)

	text, err := g.callBackend(buildPrompt(style, topic))
	if err != nil {
		log.Printf("[GENERATOR] ERROR generating post: %v, using fallback", err)
		bugsink.CaptureError(err, map[string]interface{}{
			"component": "generator",
			"style":     style,
			"topic":     topic,
		})
		metrics.RecordGeneration("fallback")

		return Draft{
			Text:      fallbacks[g.rnd.Intn(len(fallbacks))],
			ImageURL:  image,
			Style:     style,
			Topic:     topic,
			CreatedAt: time.Now(),
		}
	}

	text = stripQuotes(strings.TrimSpace(text))
	text = glyph + " " + text

	log.Printf("[GENERATOR] Generated post (%d chars)", len([]rune(text)))
	metrics.RecordGeneration("ok")

	return Draft{
		Text:      text,
		ImageURL:  image,
		Style:     style,
		Topic:     topic,
		CreatedAt: time.Now(),
	}
}

func buildPrompt(style, topic string) string {
	return fmt.Sprintf(
		"Напиши пост для Telegram-канала в стиле «%s» на тему «%s». "+
			"Требования: не больше %d символов, без эмодзи в начале, "+
			"без подписей вроде «Пост:» или «Тема:», без клише и канцелярита. "+
			"Только текст поста, ничего больше.",
		style, topic, maxPostLength)
}

// Gemini generateContent request/response wire format
type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *Generator) callBackend(prompt string) (string, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: generationConfig{
			MaxOutputTokens: 200,
			Temperature:     0.8,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)

	resp, err := g.httpClient.Post(url, "application/json", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var geminiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response: no candidates")
	}

	text := strings.TrimSpace(geminiResp.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", fmt.Errorf("empty response: blank candidate text")
	}

	return text, nil
}

// stripQuotes removes one pair of enclosing ASCII double quotes. Gemini
// likes to wrap short posts in them.
func stripQuotes(text string) string {
	if len(text) >= 2 && strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) {
		return text[1 : len(text)-1]
	}
	return text
}
