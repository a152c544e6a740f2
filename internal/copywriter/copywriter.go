// Package copywriter rewrites a discovered ad's text into new sales copy with
// an LLM.
package copywriter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ad-scout/internal/model"
	"github.com/sells-group/ad-scout/pkg/anthropic"
)

const (
	DefaultModel       = "claude-sonnet-4-5"
	DefaultMaxTokens   = 1024
	DefaultTemperature = 0.7
)

var (
	// ErrInvalidRequest is returned when a clone request is missing fields.
	ErrInvalidRequest = errors.New("copywriter: invalid request")
	// ErrEmptyCopy is returned when the model answers without text.
	ErrEmptyCopy = errors.New("copywriter: empty copy")
)

const systemPrompt = `Eres un copywriter experto en anuncios de Facebook para productos digitales en Latinoamérica.
Reescribes textos de anuncios en español: ajustas el mensaje, mejoras la persuasión, añades emojis adecuados y un llamado a la acción claro.
Mantienes el nombre de la marca o página. Devuelves solo el texto final, sin explicaciones.`

// Request is the input for one clone.
type Request struct {
	AdID     string  `json:"ad_id,omitempty"`
	PageName string  `json:"page_name"`
	AdText   string  `json:"ad_text"`
	Country  string  `json:"country"`
	Price    float64 `json:"price"`
}

// Validate checks the required fields.
func (r Request) Validate() error {
	switch {
	case strings.TrimSpace(r.PageName) == "":
		return eris.Wrap(ErrInvalidRequest, "page_name is required")
	case strings.TrimSpace(r.AdText) == "" || r.AdText == model.NoTextPlaceholder:
		return eris.Wrap(ErrInvalidRequest, "ad_text is required")
	case !model.IsCountryCode(strings.ToUpper(r.Country)):
		return eris.Wrapf(ErrInvalidRequest, "country %q is not a two-letter code", r.Country)
	case r.Price < 0:
		return eris.Wrap(ErrInvalidRequest, "price must not be negative")
	}
	return nil
}

// Prompt renders the user message for r.
func (r Request) Prompt() string {
	return fmt.Sprintf(
		"Genera un copy de venta para Facebook basándote en este texto original.\n"+
			"País objetivo: %s. Precio de oferta: %.2f.\n"+
			"Texto original:\n---\n%s\n---\n"+
			"Nombre de la página: %s.",
		strings.ToUpper(r.Country), r.Price, strings.TrimSpace(r.AdText), strings.TrimSpace(r.PageName),
	)
}

// Copywriter generates copy through an anthropic.Client.
type Copywriter struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
	now         func() time.Time
}

// Option configures a Copywriter.
type Option func(*Copywriter)

// WithModel overrides the model ID.
func WithModel(m string) Option {
	return func(c *Copywriter) {
		if m != "" {
			c.model = m
		}
	}
}

// WithMaxTokens overrides the output token limit.
func WithMaxTokens(n int64) Option {
	return func(c *Copywriter) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// New creates a Copywriter.
func New(client anthropic.Client, opts ...Option) *Copywriter {
	c := &Copywriter{
		client:      client,
		model:       DefaultModel,
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clone validates req, asks the model for new copy and returns the unsaved
// clone.
func (c *Copywriter) Clone(ctx context.Context, req Request) (*model.ClonedAd, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	temp := c.temperature
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		System:      anthropic.CachedSystem(systemPrompt, "5m"),
		Messages:    []anthropic.Message{{Role: "user", Content: req.Prompt()}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrap(err, "copywriter: generate")
	}
	resp.Usage.LogCost(c.model, "clone")

	text := resp.Text()
	if text == "" {
		zap.L().Warn("copywriter: model returned no text",
			zap.String("page", req.PageName),
			zap.String("stop_reason", resp.StopReason),
		)
		return nil, eris.Wrapf(ErrEmptyCopy, "stop reason %q", resp.StopReason)
	}

	return &model.ClonedAd{
		AdID:         req.AdID,
		PageName:     strings.TrimSpace(req.PageName),
		CountryCode:  strings.ToUpper(req.Country),
		Price:        req.Price,
		OriginalText: req.AdText,
		Copy:         text,
		Model:        c.model,
		GeneratedAt:  c.now().UTC(),
	}, nil
}
