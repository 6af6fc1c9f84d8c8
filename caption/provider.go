package caption

import "context"

type Image struct {
	Data     []byte
	MimeType string
}

type Request struct {
	APIKey string
	Model  string
	Prompt string
	Image  Image
}

// Provider calls an image captioning model. Implementations return *QuotaError when the key
// was rate-limited, over quota or rejected, so the caller can move on to the next key.
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
}
