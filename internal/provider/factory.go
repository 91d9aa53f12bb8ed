package provider

import (
	"fmt"
	"time"
)

// Settings selects and configures a concrete provider.
type Settings struct {
	Kind              string        `yaml:"kind"` // ollama, openai, anthropic
	APIKey            string        `yaml:"api_key,omitempty"`
	Model             string        `yaml:"model,omitempty"`
	BaseURL           string        `yaml:"base_url,omitempty"`
	Timeout           time.Duration `yaml:"timeout,omitempty"`
	AllowPersonalData bool          `yaml:"allow_personal_data,omitempty"`
}

// New creates the provider described by the settings. An empty kind defaults
// to the local Ollama path.
func New(s Settings) (GenerationProvider, error) {
	switch s.Kind {
	case "ollama", "":
		return NewOllamaProvider(OllamaConfig{
			BaseURL: s.BaseURL,
			Model:   s.Model,
			Timeout: s.Timeout,
		}), nil
	case "openai":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:            s.APIKey,
			Model:             s.Model,
			BaseURL:           s.BaseURL,
			Timeout:           s.Timeout,
			AllowPersonalData: s.AllowPersonalData,
		}), nil
	case "anthropic":
		return NewAnthropicProvider(AnthropicConfig{
			APIKey:            s.APIKey,
			Model:             s.Model,
			BaseURL:           s.BaseURL,
			Timeout:           s.Timeout,
			AllowPersonalData: s.AllowPersonalData,
		}), nil
	default:
		return nil, fmt.Errorf("provider: unsupported kind %q", s.Kind)
	}
}
