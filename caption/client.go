package caption

import (
	"context"
	"errors"
	"strings"

	"humorize/utils"

	"github.com/rs/zerolog/log"
)

// Client produces humorous descriptions of photos. Callers don't see the key pool: rate-limited
// keys are quarantined and the next usable key is tried within the same call.
type Client struct {
	pool       *KeyPool
	provider   Provider
	model      string
	maxImagePx uint
}

type Option func(*Client)

// WithMaxImageSize downscales images larger than px (either side) before sending them
func WithMaxImageSize(px uint) Option {
	return func(c *Client) {
		c.maxImagePx = px
	}
}

func NewClient(pool *KeyPool, provider Provider, model string, opts ...Option) *Client {
	c := &Client{pool: pool, provider: provider, model: model}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Pool() *KeyPool {
	return c.pool
}

func (c *Client) prepare(img Image) Image {
	res := utils.ShrinkImage(img.Data, img.MimeType, c.maxImagePx)
	if res.Resized {
		log.Debug().Int("from", len(img.Data)).Int("to", len(res.Data)).Msg("image downscaled for captioning")
	}
	return Image{Data: res.Data, MimeType: res.MimeType}
}

// Describe returns the caption for img, styled by settings (nil means the default prompt)
func (c *Client) Describe(ctx context.Context, img Image, settings *Settings) (string, error) {
	text, err := c.describe(ctx, img, PromptFor(settings))
	switch {
	case err == nil:
		describeTotal.WithLabelValues(resultOK).Inc()
	case errors.Is(err, ErrAllCredentialsExhausted):
		describeTotal.WithLabelValues(resultExhausted).Inc()
	case errors.Is(err, ErrEmptyResponse):
		describeTotal.WithLabelValues(resultEmpty).Inc()
	default:
		describeTotal.WithLabelValues(resultError).Inc()
	}
	return text, err
}

func (c *Client) describe(ctx context.Context, img Image, prompt string) (string, error) {
	img = c.prepare(img)
	tried := make(map[int]bool, c.pool.Len())
	for len(tried) < c.pool.Len() {
		idx, key, err := c.pool.Select(ctx, tried)
		if err != nil {
			return "", err
		}
		tried[idx] = true
		attemptsTotal.Inc()

		text, err := c.provider.Generate(ctx, Request{
			APIKey: key,
			Model:  c.model,
			Prompt: prompt,
			Image:  img,
		})
		if err == nil {
			if strings.TrimSpace(text) == "" {
				return "", ErrEmptyResponse
			}
			return text, nil
		}
		if !IsQuotaError(err) {
			var se *ServiceError
			if errors.As(err, &se) {
				return "", err
			}
			return "", &ServiceError{Message: err.Error(), Err: err}
		}
		log.Warn().Err(err).Int("key", idx).Msg("caption key rejected, rotating")
		c.pool.Quarantine(ctx, idx)
	}
	return "", ErrAllCredentialsExhausted
}
