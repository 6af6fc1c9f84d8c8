package caption

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const DefaultGeminiURL = "https://generativelanguage.googleapis.com"

// GeminiProvider calls the Gemini generateContent REST API
type GeminiProvider struct {
	client *resty.Client
}

func NewGeminiProvider(baseURL string) *GeminiProvider {
	if baseURL == "" {
		baseURL = DefaultGeminiURL
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(2 * time.Minute)
	return &GeminiProvider{client: c}
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

var quotaStatuses = map[string]bool{
	"RESOURCE_EXHAUSTED": true,
	"PERMISSION_DENIED":  true,
	"UNAUTHENTICATED":    true,
}

func isQuotaResponse(status int, apiStatus, message string) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	if quotaStatuses[apiStatus] {
		return true
	}
	// invalid keys come back as 400 INVALID_ARGUMENT
	msg := strings.ToLower(message)
	return strings.Contains(msg, "api key") || strings.Contains(msg, "quota")
}

func (g *GeminiProvider) Generate(ctx context.Context, req Request) (string, error) {
	mimeType := req.Image.MimeType
	if mimeType == "" {
		mimeType = "image/png"
	}
	body := geminiRequest{Contents: []geminiContent{{Parts: []geminiPart{
		{Text: req.Prompt},
		{InlineData: &geminiInlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(req.Image.Data)}},
	}}}}

	var out geminiResponse
	var apiErr geminiError
	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("x-goog-api-key", req.APIKey).
		SetPathParam("model", req.Model).
		SetBody(&body).
		SetResult(&out).
		SetError(&apiErr).
		Post("/v1beta/models/{model}:generateContent")
	if err != nil {
		return "", &ServiceError{Message: err.Error(), Err: err}
	}
	if resp.IsError() {
		message := apiErr.Error.Message
		if message == "" {
			message = strings.TrimSpace(resp.String())
		}
		if isQuotaResponse(resp.StatusCode(), apiErr.Error.Status, message) {
			return "", &QuotaError{Status: resp.StatusCode(), Message: message}
		}
		return "", &ServiceError{Status: resp.StatusCode(), Message: message}
	}

	var sb strings.Builder
	for _, c := range out.Candidates {
		for _, p := range c.Content.Parts {
			sb.WriteString(p.Text)
		}
		if sb.Len() > 0 {
			break
		}
	}
	return sb.String(), nil
}
