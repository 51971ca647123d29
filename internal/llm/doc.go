// Package llm asks three external language models for a next-outcome guess.
//
// Each Provider wraps one vendor and one persona prompt: Claude (Anthropic
// Messages API) reasons about transitions, GPT (OpenAI chat completions)
// about overdue segments, and Gemini (google.golang.org/genai) about a
// multi-window posterior. All three are asked for JSON only; ParsePrediction
// takes the span from the first '{' to the last '}' and decodes it leniently.
//
// A provider without an API key returns ErrNotConfigured without touching
// the network. Registry builds the three from configuration and reports
// which are configured.
package llm
