package factory

import (
	"fmt"

	"clinic-chat-be/internal/config"
	"clinic-chat-be/pkg/llm"
	"clinic-chat-be/pkg/llm/ollama"
	"clinic-chat-be/pkg/llm/openai"
)

func NewLLMProvider(cfg config.AIConfig, openAIKey string) (llm.LLMProvider, error) {
	switch cfg.LLMProvider {
	case "ollama":
		baseURL := cfg.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewOllamaProvider(baseURL, cfg.LLMModel), nil
	case "openai":
		if openAIKey == "" {
			return nil, fmt.Errorf("openai provider requires OPENAI_API_KEY")
		}
		return openai.NewOpenAIProvider(openAIKey, cfg.LLMModel), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}
}
