package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

type gptResponse struct {
	IsClient   bool   `json:"is_client"`
	Confidence int    `json:"confidence"`
	IntentType string `json:"intent_type"`
	Reasoning  string `json:"reasoning"`
}

// GPTClassifier judges buying intent with an OpenAI chat completion. The
// prompt asks for a strict JSON object; anything unparseable surfaces as an
// error so the gate can apply its failure policy.
type GPTClassifier struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	mode        Mode
	logger      *zap.Logger
}

func NewGPTClassifier(apiKey, model string, maxTokens int, temperature float64, mode Mode, logger *zap.Logger) *GPTClassifier {
	return &GPTClassifier{
		client:      openai.NewClient(apiKey),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		mode:        mode,
		logger:      logger,
	}
}

func (c *GPTClassifier) Classify(ctx context.Context, req Request) (Result, error) {
	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: c.buildPrompt(req),
				},
			},
			MaxTokens:   c.maxTokens,
			Temperature: float32(c.temperature),
		},
	)
	if err != nil {
		return Result{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("empty completion response")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)

	var parsed gptResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		c.logger.Error("Failed to parse classifier response",
			zap.Error(err),
			zap.String("response", content))
		return Result{}, fmt.Errorf("parse classifier response: %w", err)
	}

	if parsed.Confidence < 0 {
		parsed.Confidence = 0
	}
	if parsed.Confidence > 10 {
		parsed.Confidence = 10
	}

	return Result{
		IsClient:   parsed.IsClient,
		Confidence: parsed.Confidence,
		IntentType: parsed.IntentType,
		Reasoning:  parsed.Reasoning,
	}, nil
}

func (c *GPTClassifier) buildPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("Analyze the following group chat message for intent to buy a product or service.\n\n")
	fmt.Fprintf(&b, "Product: %s\n", req.ProductName)
	fmt.Fprintf(&b, "Product keywords: %s\n", strings.Join(req.Keywords, ", "))
	fmt.Fprintf(&b, "Matched keywords: %s\n", strings.Join(req.MatchedKeywords, ", "))
	if req.AuthorName != "" {
		fmt.Fprintf(&b, "Author: %s\n", req.AuthorName)
	}
	if req.ChatTitle != "" {
		fmt.Fprintf(&b, "Chat: %s\n", req.ChatTitle)
	}
	fmt.Fprintf(&b, "Message: %q\n\n", req.MessageText)

	if c.mode == ModeBinary {
		b.WriteString(`Decide whether the author is a potential buyer of this product.

Respond with a JSON object only, no extra text:
{
    "is_client": true or false,
    "reasoning": "short explanation of the decision"
}`)
	} else {
		b.WriteString(`Rate on a scale from 1 to 10 how confident you are that the author is a
potential buyer, and classify the intent type.

Respond with a JSON object only, no extra text:
{
    "confidence": number from 1 to 10,
    "intent_type": "information/purchase/comparison/other",
    "reasoning": "short explanation of the score"
}`)
	}

	return b.String()
}
