package executor

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/kestrelhq/kestrel/pkg/models"
)

// AnthropicConfig contains configuration for the provider-backed executor.
type AnthropicConfig struct {
	// Model is the Claude model to use. Defaults to Sonnet when empty.
	Model anthropic.Model
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY env var.
	APIKey string
	// MaxTokens caps the response size per call. Defaults to 1024 when zero.
	MaxTokens int64
	// Capabilities are the capability tags this executor serves.
	Capabilities []string
}

// AnthropicExecutor delegates step work to the Anthropic Messages API.
// It satisfies the Executor interface and tracks token usage across calls.
type AnthropicExecutor struct {
	inner        anthropic.Client
	model        anthropic.Model
	maxTokens    int64
	capabilities []string
	tracker      *UsageTracker
}

// NewAnthropicExecutor creates a provider-backed executor.
func NewAnthropicExecutor(cfg AnthropicConfig) (*AnthropicExecutor, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
	}

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	capabilities := cfg.Capabilities
	if len(capabilities) == 0 {
		capabilities = []string{"build", "research", "chat", "workflow", "estimate"}
	}

	return &AnthropicExecutor{
		inner:        anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:        model,
		maxTokens:    maxTokens,
		capabilities: capabilities,
		tracker:      NewUsageTracker(),
	}, nil
}

// ID returns the executor identifier.
func (e *AnthropicExecutor) ID() string { return "anthropic" }

// Capabilities returns the capability tags this executor serves.
func (e *AnthropicExecutor) Capabilities() []string {
	return append([]string(nil), e.capabilities...)
}

// Tracker returns the usage tracker for this executor.
func (e *AnthropicExecutor) Tracker() *UsageTracker {
	return e.tracker
}

// Execute sends the work description to the Messages API and folds the
// response into an Output. API failures become a failure Output rather than
// an error so the dispatcher records them on the task.
func (e *AnthropicExecutor) Execute(ctx context.Context, in Input) (Output, error) {
	var sb strings.Builder
	sb.WriteString(in.Query)
	if len(in.Context) > 0 {
		sb.WriteString("\n\nContext:")
		for k, v := range in.Context {
			sb.WriteString(fmt.Sprintf("\n- %s: %s", k, v))
		}
	}
	prompt := sb.String()

	resp, err := e.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     e.model,
		MaxTokens: e.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return FailOutput(in.TaskID, e.ID(), fmt.Sprintf("messages API call failed: %v", err)), nil
	}

	var text strings.Builder
	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(b.Text)
		}
	}

	input := resp.Usage.InputTokens
	output := resp.Usage.OutputTokens
	e.tracker.Add(input, output)

	return Output{
		TaskID:     in.TaskID,
		ExecutorID: e.ID(),
		Status:     StatusSuccess,
		Result: Result{
			Summary:   text.String(),
			Artifacts: nil,
			Logs:      []string{fmt.Sprintf("anthropic: %d in / %d out tokens", input, output)},
		},
		Cost: models.Cost{
			Tokens: input + output,
			USD:    usageCost(input, output),
		},
	}, nil
}

// usageCost estimates USD cost using approximate Sonnet pricing.
func usageCost(input, output int64) float64 {
	return float64(input)/1_000_000*3.0 + float64(output)/1_000_000*15.0
}

// UsageTracker tracks token usage across API calls.
type UsageTracker struct {
	mu        sync.Mutex
	inputTok  int64
	outputTok int64
	calls     int
}

// NewUsageTracker creates a new usage tracker.
func NewUsageTracker() *UsageTracker {
	return &UsageTracker{}
}

// Add records token usage from an API call.
func (t *UsageTracker) Add(input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTok += input
	t.outputTok += output
	t.calls++
}

// Total returns the total input and output tokens tracked.
func (t *UsageTracker) Total() (input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inputTok, t.outputTok
}

// Calls returns the number of API calls made.
func (t *UsageTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}
