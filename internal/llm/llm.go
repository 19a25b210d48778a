package llm

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/mkraev/rubriceval/internal/llm/prompts"
	"github.com/mkraev/rubriceval/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// maxReplyTokens bounds the model's reply; a score object needs far less.
const maxReplyTokens = 250

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new model client. baseURL may be empty for the default
// OpenAI endpoint.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// EvalInput describes one question and its answer images for evaluation.
// QuestionText is set for text questions, QuestionPath for image questions.
type EvalInput struct {
	QuestionType model.QuestionType
	QuestionText string
	QuestionPath string
	AnswerPaths  []string
}

// Evaluate sends the rubric, the question content, and all answer images to
// the model in a single request and extracts category scores from the reply.
// Exactly one of the return values is non-nil: any failure (image encoding,
// the API call itself, or score extraction) comes back as an error, never as
// a fault. An encoding failure for any required image short-circuits before
// the request is sent.
func (c *Client) Evaluate(ctx context.Context, in EvalInput) (model.RubricScores, error) {
	parts, err := buildParts(in)
	if err != nil {
		return nil, err
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		// go-openai drops a literal 0 via omitempty; smallest nonzero keeps
		// generation deterministic.
		Temperature: math.SmallestNonzeroFloat32,
		MaxTokens:   maxReplyTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("model API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("model returned no choices")
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	slog.Debug("model reply", "raw", raw)

	obj, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	if len(obj) == 0 {
		return nil, fmt.Errorf("evaluation completed but no scores were returned")
	}
	return scoresFromObject(obj)
}

// buildParts assembles the ordered content sequence for one request:
// rubric text, question slot, answer label, answer images, closing
// instruction. One builder covers all four modality/cardinality variants.
func buildParts(in EvalInput) ([]openai.ChatMessagePart, error) {
	multi := len(in.AnswerPaths) > 1

	parts := []openai.ChatMessagePart{textPart(prompts.Guidelines)}

	if in.QuestionType == model.QuestionImage {
		qURL, err := EncodeImageDataURL(in.QuestionPath)
		if err != nil {
			return nil, fmt.Errorf("encode question image: %w", err)
		}
		parts = append(parts, textPart(prompts.ProblemImageLabel), imagePart(qURL))
	} else {
		parts = append(parts, textPart(prompts.QuestionTextBlock(in.QuestionText)))
	}

	label := prompts.SingleAnswerLabel
	if multi {
		label = prompts.MultiAnswerLabel
	}
	parts = append(parts, textPart(label))

	for _, path := range in.AnswerPaths {
		aURL, err := EncodeImageDataURL(path)
		if err != nil {
			return nil, fmt.Errorf("encode answer image: %w", err)
		}
		parts = append(parts, imagePart(aURL))
	}

	parts = append(parts, textPart(prompts.ClosingInstruction(in.QuestionType, multi)))
	return parts, nil
}

func textPart(text string) openai.ChatMessagePart {
	return openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: text,
	}
}

func imagePart(dataURL string) openai.ChatMessagePart {
	return openai.ChatMessagePart{
		Type:     openai.ChatMessagePartTypeImageURL,
		ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
	}
}
