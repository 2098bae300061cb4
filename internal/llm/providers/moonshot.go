package providers

import (
	"net/http"
	"os"

	"inkwell/internal/llm"
)

// MoonshotProvider implements the Moonshot AI API. The wire format is
// OpenAI-compatible; only the default URL and authentication differ.
type MoonshotProvider struct {
	OpenAIProvider // Embed for shared request/response format
}

func init() {
	llm.RegisterProvider(&MoonshotProvider{})
}

// Name returns the provider identifier.
func (m *MoonshotProvider) Name() string {
	return "moonshot"
}

// BuildURL constructs the Moonshot chat completions endpoint.
func (m *MoonshotProvider) BuildURL(baseURL string) string {
	if baseURL == "" {
		baseURL = "https://api.moonshot.ai/v1"
	}
	return m.OpenAIProvider.BuildURL(baseURL)
}

// SetHeaders adds Moonshot authentication headers.
func (m *MoonshotProvider) SetHeaders(req *http.Request) {
	if apiKey := os.Getenv("MOONSHOT_API_KEY"); apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
}
