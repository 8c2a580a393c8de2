package assistant

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const DefaultModel = "claude-sonnet-4-20250514"

// Completer is the language model behind the assistant.
type Completer interface {
	Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error)
	// Describe answers instruction about a PNG image.
	Describe(ctx context.Context, png []byte, instruction string, maxTokens int) (string, error)
}

// Anthropic implements Completer with the Messages API.
type Anthropic struct {
	client *anthropic.Client
	model  string
}

type AnthropicConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

func NewAnthropic(cfg AnthropicConfig) (*Anthropic, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Anthropic{
		client: anthropic.NewClient(opts...),
		model:  model,
	}, nil
}

func (a *Anthropic) Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.F(anthropic.Model(a.model)),
		MaxTokens: anthropic.F(int64(maxTokens)),
		Messages: anthropic.F([]anthropic.MessageParam{{
			Role: anthropic.F(anthropic.MessageParamRoleUser),
			Content: anthropic.F([]anthropic.ContentBlockParamUnion{
				anthropic.TextBlockParam{
					Type: anthropic.F(anthropic.TextBlockParamTypeText),
					Text: anthropic.F(prompt),
				},
			}),
		}}),
	}
	if system != "" {
		params.System = anthropic.F([]anthropic.TextBlockParam{
			anthropic.NewTextBlock(system),
		})
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic completion failed: %w", err)
	}
	return textOf(resp), nil
}

func (a *Anthropic) Describe(ctx context.Context, png []byte, instruction string, maxTokens int) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.F(anthropic.Model(a.model)),
		MaxTokens: anthropic.F(int64(maxTokens)),
		Messages: anthropic.F([]anthropic.MessageParam{{
			Role: anthropic.F(anthropic.MessageParamRoleUser),
			Content: anthropic.F([]anthropic.ContentBlockParamUnion{
				anthropic.TextBlockParam{
					Type: anthropic.F(anthropic.TextBlockParamTypeText),
					Text: anthropic.F(instruction),
				},
				anthropic.ImageBlockParam{
					Type: anthropic.F(anthropic.ImageBlockParamTypeImage),
					Source: anthropic.F(anthropic.ImageBlockParamSourceUnion(anthropic.ImageBlockParamSource{
						Type:      anthropic.F(anthropic.ImageBlockParamSourceTypeBase64),
						MediaType: anthropic.F(anthropic.ImageBlockParamSourceMediaTypeImagePNG),
						Data:      anthropic.F(base64.StdEncoding.EncodeToString(png)),
					})),
				},
			}),
		}}),
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic vision request failed: %w", err)
	}
	return textOf(resp), nil
}

func textOf(resp *anthropic.Message) string {
	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}
