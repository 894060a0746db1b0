// Package llm provides role and task extraction backed by langchaingo models.
package llm

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/bedrock"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/kritsw/teamgraph/internal/config"
	"github.com/kritsw/teamgraph/internal/metrics"
)

// Model wraps a langchaingo LLM for text generation.
type Model struct {
	llm       llms.Model
	modelName string
	collector *metrics.Collector
}

// NewModel creates an LLM model based on configuration. collector may be nil.
func NewModel(ctx context.Context, cfg config.LLMConfig, collector *metrics.Collector) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.Provider {
	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	case config.ProviderBedrock:
		awscfg, awsErr := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if awsErr != nil {
			return nil, fmt.Errorf("load aws config: %w", awsErr)
		}
		client := bedrockruntime.NewFromConfig(awscfg)
		model, err = bedrock.New(
			bedrock.WithClient(client),
			bedrock.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create bedrock model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	return &Model{
		llm:       model,
		modelName: cfg.Model,
		collector: collector,
	}, nil
}

// completion is a model response with the token usage the provider reported.
type completion struct {
	content      string
	inputTokens  int64
	outputTokens int64
	hasUsage     bool
}

func (m *Model) complete(ctx context.Context, systemPrompt, userPrompt string) (*completion, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	response, err := m.llm.GenerateContent(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no response choices")
	}

	choice := response.Choices[0]
	resp := &completion{content: choice.Content}
	resp.inputTokens, resp.outputTokens, resp.hasUsage = tokenCounts(choice.GenerationInfo)
	return resp, nil
}

// recordUsage reports an LLM call to the collector, with token counts when
// the provider supplied them.
func (m *Model) recordUsage(op string, start time.Time, resp *completion) {
	if m.collector == nil {
		return
	}
	elapsed := time.Since(start)
	if resp != nil && resp.hasUsage {
		m.collector.RecordLLMUsage(op, elapsed, resp.inputTokens, resp.outputTokens)
		return
	}
	m.collector.RecordTiming(op, elapsed)
}

// tokenCounts reads token usage from a GenerationInfo map. Providers disagree
// on key names and numeric types, so several spellings are tried.
func tokenCounts(info map[string]any) (input, output int64, ok bool) {
	input, inOK := infoInt(info, "PromptTokens", "InputTokens", "prompt_tokens", "input_tokens")
	output, outOK := infoInt(info, "CompletionTokens", "OutputTokens", "completion_tokens", "output_tokens")
	return input, output, inOK || outOK
}

func infoInt(info map[string]any, keys ...string) (int64, bool) {
	for _, key := range keys {
		switch v := info[key].(type) {
		case int:
			return int64(v), true
		case int32:
			return int64(v), true
		case int64:
			return v, true
		case float64:
			return int64(v), true
		}
	}
	return 0, false
}
