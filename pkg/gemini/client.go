// Package gemini queries the Gemini API for descriptive metadata about
// media URLs. Responses are constrained to a fixed JSON schema and
// grounded with the Google Search tool so results reflect a real lookup
// rather than pure generation.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/vexlio/streambridge/internal/config"
	"github.com/vexlio/streambridge/internal/domain"
)

// Client performs one metadata lookup for a URL and returns the raw
// text payload, expected to be a JSON object matching the declared
// schema. Interpretation of the payload belongs to the caller.
type Client interface {
	Lookup(ctx context.Context, url string) (string, error)
}

// GenAIClient implements Client against the Gemini API.
type GenAIClient struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	timeout time.Duration
}

// NewClient creates a Gemini-backed metadata client.
func NewClient(ctx context.Context, cfg config.GeminiConfig) (*GenAIClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = metadataSchema()
	model.Tools = []*genai.Tool{
		{GoogleSearchRetrieval: &genai.GoogleSearchRetrieval{}},
	}
	model.SetTemperature(0.2)

	return &GenAIClient{
		client:  client,
		model:   model,
		timeout: cfg.Timeout,
	}, nil
}

// Close releases the underlying API client.
func (c *GenAIClient) Close() error {
	return c.client.Close()
}

// Lookup asks the model to describe the media behind the URL and
// returns the raw response text.
func (c *GenAIClient) Lookup(ctx context.Context, url string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.model.GenerateContent(ctx, genai.Text(buildLookupPrompt(url)))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return "", errors.New("empty response from model")
	}
	return text, nil
}

// metadataSchema declares the response shape: the six metadata fields,
// with estimatedSizes as a nested object carrying exactly the fixed
// quality keys.
func metadataSchema() *genai.Schema {
	sizeProps := make(map[string]*genai.Schema, len(domain.QualityKeys))
	for _, key := range domain.QualityKeys {
		sizeProps[key] = &genai.Schema{Type: genai.TypeString}
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":    {Type: genai.TypeString, Description: "Title of the media content"},
			"author":   {Type: genai.TypeString, Description: "Channel, uploader or author name"},
			"views":    {Type: genai.TypeString, Description: "View count as a display string"},
			"duration": {Type: genai.TypeString, Description: "Duration as a display string"},
			"summary":  {Type: genai.TypeString, Description: "1-3 sentence description of the content"},
			"estimatedSizes": {
				Type:       genai.TypeObject,
				Properties: sizeProps,
				Required:   domain.QualityKeys,
			},
		},
		Required: []string{"title", "author", "views", "duration", "summary", "estimatedSizes"},
	}
}

func buildLookupPrompt(url string) string {
	var sb strings.Builder
	sb.WriteString("Look up the media content at this URL and describe it:\n\n")
	sb.WriteString(url)
	sb.WriteString("\n\nReturn a JSON object with these fields:\n")
	sb.WriteString("- title: the content title\n")
	sb.WriteString("- author: the channel or uploader name\n")
	sb.WriteString("- views: the view count as a display string (may be \"N/A\")\n")
	sb.WriteString("- duration: the runtime as a display string\n")
	sb.WriteString("- summary: 1-3 sentences describing the content\n")
	sb.WriteString("- estimatedSizes: estimated download sizes as display strings (e.g. \"450 MB\") for the keys ")
	sb.WriteString(strings.Join(domain.QualityKeys, ", "))
	sb.WriteString("\n\nReturn ONLY valid JSON, no markdown, no explanation.")
	return sb.String()
}

// responseText concatenates the text parts of all candidates.
func responseText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}
	return strings.TrimSpace(sb.String())
}
