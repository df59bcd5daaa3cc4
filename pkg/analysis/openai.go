package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/umputun/grcnews/pkg/domain"
)

// OpenAI rates articles with an OpenAI-compatible chat completion API
type OpenAI struct {
	client    *openai.Client
	params    OpenAIParams
	systemMsg string
}

// OpenAIParams configures OpenAI analyzer
type OpenAIParams struct {
	Endpoint     string
	APIKey       string
	Model        string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
	UseJSONMode  bool
	Timeout      time.Duration
}

const maxParseAttempts = 3

// default system prompt, mirrors fabric label_and_rate pattern output
const defaultSystemPrompt = `You are an expert curator of governance, risk and compliance (GRC) news.
You label and rate articles by how much valuable, novel information they contain for GRC,
cybersecurity, privacy, regulation and AI governance professionals.

Respond ONLY with a JSON object with these keys:
- "one-sentence-summary": one sentence of at most 25 words summarizing the article
- "labels": comma separated list of topical labels, e.g. "Cybersecurity, Regulation, Privacy, AI"
- "rating": one of "S Tier: (Must Consume Original Content Immediately)", "A Tier: (Should Consume Original Content)",
  "B Tier: (Consume Original When Time Allows)", "C Tier: (Maybe Skip It)", "D Tier: (Definitely Skip It)"
- "rating-explanation": array of 3 to 5 short strings explaining the rating
- "quality-score": integer from 1 to 100
- "quality-score-explanation": array of 3 to 5 short strings explaining the score

Do not wrap the JSON in markdown and do not add any other text.`

// NewOpenAI makes OpenAI analyzer
func NewOpenAI(p OpenAIParams) *OpenAI {
	clientConfig := openai.DefaultConfig(p.APIKey)
	if p.Endpoint != "" {
		clientConfig.BaseURL = p.Endpoint
	}
	if p.Timeout == 0 {
		p.Timeout = 30 * time.Second
	}

	systemMsg := p.SystemPrompt
	if systemMsg == "" {
		systemMsg = defaultSystemPrompt
	}

	return &OpenAI{
		client:    openai.NewClientWithConfig(clientConfig),
		params:    p,
		systemMsg: systemMsg,
	}
}

// temperature converts t for the request, zero is sent as the smallest positive value
// because the client omits a zero temperature and the server would apply its own default
func temperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

// Reentrant reports that concurrent Analyze calls are safe
func (o *OpenAI) Reentrant() bool { return true }

// Analyze sends formatted content to the model and parses the JSON reply.
// Unparseable replies are retried, up to 3 attempts in total; request errors fail immediately.
func (o *OpenAI) Analyze(ctx context.Context, c *domain.ExtractedContent) (*domain.AnalysisResult, error) {
	if c == nil {
		return nil, errors.New("no content to analyze")
	}

	ctx, cancel := context.WithTimeout(ctx, o.params.Timeout)
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model:       o.params.Model,
		Temperature: temperature(o.params.Temperature),
		MaxTokens:   o.params.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: o.systemMsg},
			{Role: openai.ChatMessageRoleUser, Content: FormatBlock(c)},
		},
	}
	if o.params.UseJSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var lastErr error
	for attempt := 0; attempt < maxParseAttempts; attempt++ {
		resp, err := o.client.CreateChatCompletion(ctx, chatReq)
		if err != nil {
			return nil, fmt.Errorf("llm request for %s failed: %w", c.URL, err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("no response from llm for %s", c.URL)
		}

		res, err := ParseResult([]byte(resp.Choices[0].Message.Content))
		if err == nil {
			return res, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("failed after %d attempts for %s: %w", maxParseAttempts, c.URL, lastErr)
}
