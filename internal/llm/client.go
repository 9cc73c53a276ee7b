package llm

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	apperrors "github.com/vaultstream/vaultstream/internal/errors"
)

// Client wraps two go-openai clients: one for text summarization, one for
// vision-based cover-image description (§C).
type Client struct {
	text   *openai.Client
	vision *openai.Client

	textModel   string
	visionModel string
}

// NewClient builds a Client from the text and vision role configs. Either
// role may be left with an empty APIKey, in which case its methods return a
// transient AppError rather than panicking, so adapters can degrade
// gracefully when no LLM is configured.
func NewClient(textCfg, visionCfg Config) *Client {
	c := &Client{textModel: textCfg.ModelName, visionModel: visionCfg.ModelName}
	if textCfg.APIKey != "" {
		c.text = newOpenAIClient(textCfg)
	}
	if visionCfg.APIKey != "" {
		c.vision = newOpenAIClient(visionCfg)
	}
	return c
}

func newOpenAIClient(cfg Config) *openai.Client {
	oaCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oaCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(oaCfg)
}

// Summarize produces a short Markdown summary of the generic adapter's
// parsed article body (§4.4/§C). It returns no layout_type hint.
func (c *Client) Summarize(ctx context.Context, title, body string) (summary string, err error) {
	if c.text == nil {
		return "", apperrors.Wrap(apperrors.KindTransient, "llm: no text model configured", nil)
	}
	prompt := "Summarize the following article in 2-3 sentences of plain Markdown. " +
		"Title: " + title + "\n\nBody:\n" + truncate(body, 6000)

	resp, err := c.text.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.textModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindTransient, "llm: summarization request failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.Wrap(apperrors.KindTransient, "llm: empty summarization response", nil)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// DescribeImage asks the vision model for a short alt-text style
// description of imageURL, noting explicit/NSFW content (§4.1/§C). No
// adapter in this repository calls it.
func (c *Client) DescribeImage(ctx context.Context, imageURL string) (description string, err error) {
	if c.vision == nil {
		return "", apperrors.Wrap(apperrors.KindTransient, "llm: no vision model configured", nil)
	}
	resp, err := c.vision.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: "Describe this image in one short sentence, noting if it depicts explicit/NSFW content."},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: imageURL}},
				},
			},
		},
	})
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindTransient, "llm: vision request failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.Wrap(apperrors.KindTransient, "llm: empty vision response", nil)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
