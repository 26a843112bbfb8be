package llm

import (
	"os"
)

const (
	// GroqAPIURL is the Groq API endpoint (OpenAI-compatible).
	GroqAPIURL = "https://api.groq.com/openai/v1"
	// DefaultGroqModel is the default model to use.
	DefaultGroqModel = "llama-3.3-70b-versatile"
)

// Groq model constants.
const (
	GroqLlama31_8B     = "llama-3.1-8b-instant"
	GroqLlama33_70B    = "llama-3.3-70b-versatile"
	GroqLlama4Scout17B = "meta-llama/llama-4-scout-17b-16e-instruct"
	GroqMixtral8x7B    = "mixtral-8x7b-32768"
	GroqGemma2_9B      = "gemma2-9b-it"
)

// NewGroqLLM creates a client for Groq's OpenAI-compatible API. Empty
// apiKey falls back to GROQ_API_KEY; empty model defaults to
// DefaultGroqModel.
func NewGroqLLM(model, apiKey string, opts ...OpenAIOption) *OpenAILLM {
	if apiKey == "" {
		apiKey = os.Getenv("GROQ_API_KEY")
	}
	if model == "" {
		model = DefaultGroqModel
	}
	return NewOpenAILLM(GroqAPIURL, model, apiKey, opts...)
}
