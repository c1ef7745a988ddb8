// Package grounding asks Gemini to answer a query with Google Search
// grounding and reports which searches the model issued.
package grounding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/capture"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
)

const (
	DefaultOverviewModel = "gemini-2.5-flash"
	DefaultAIModeModel   = "gemini-2.5-pro"

	testPrompt = `Say "Hello, World!" in exactly 3 words.`
)

// Result sources.
const (
	SourceAIMode   = "Google AI Mode (Gemini Pro)"
	SourceOverview = "Google AI Overview (Gemini Flash)"
	SourceFailed   = "Google AI"
)

var ErrNoAPIKey = errors.New("gemini API key not configured, set it in settings")

// KeySource supplies the API key at call time so key changes apply
// without a restart.
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

// Config selects models and endpoint.
type Config struct {
	OverviewModel   string
	AIModeModel     string
	BaseURL         string
	Temperature     float32
	MaxOutputTokens int32
}

// DefaultConfig mirrors the request the search page used.
func DefaultConfig() Config {
	return Config{
		OverviewModel:   DefaultOverviewModel,
		AIModeModel:     DefaultAIModeModel,
		Temperature:     1.0,
		MaxOutputTokens: 1000,
	}
}

// Result is the outcome of one grounded call. Failures are reported in
// Error rather than returned.
type Result struct {
	Query     string             `json:"originalQuery"`
	Queries   []string           `json:"queries"`
	Citations []capture.Citation `json:"citations"`
	Model     string             `json:"model,omitempty"`
	Mode      string             `json:"mode,omitempty"`
	Source    string             `json:"source"`
	Error     string             `json:"error,omitempty"`
}

// Client issues grounded generation requests.
type Client struct {
	cfg    Config
	keys   KeySource
	logger logger.Logger
}

// New creates a grounding client.
func New(cfg Config, keys KeySource, log logger.Logger) *Client {
	if cfg.OverviewModel == "" {
		cfg.OverviewModel = DefaultOverviewModel
	}
	if cfg.AIModeModel == "" {
		cfg.AIModeModel = DefaultAIModeModel
	}
	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = 1000
	}
	return &Client{
		cfg:    cfg,
		keys:   keys,
		logger: logger.Component(log, "grounding"),
	}
}

func (c *Client) newClient(ctx context.Context, key string) (*genai.Client, error) {
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      key,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: c.cfg.BaseURL},
	})
}

// Ground runs query with the Google Search tool enabled. AI mode uses the
// larger model.
func (c *Client) Ground(ctx context.Context, query string, aiMode bool) Result {
	model, mode, source := c.cfg.OverviewModel, capture.ModeAIOverview, SourceOverview
	if aiMode {
		model, mode, source = c.cfg.AIModeModel, capture.ModeAIMode, SourceAIMode
	}

	failed := func(err error) Result {
		c.logger.Warn(ctx, "grounding call failed", map[string]interface{}{
			"model": model,
			"query": query,
			"error": err.Error(),
		})
		return Result{
			Query:     query,
			Queries:   []string{},
			Citations: []capture.Citation{},
			Source:    SourceFailed,
			Error:     err.Error(),
		}
	}

	key, err := c.keys.APIKey(ctx)
	if err != nil || key == "" {
		return failed(ErrNoAPIKey)
	}

	client, err := c.newClient(ctx, key)
	if err != nil {
		return failed(fmt.Errorf("failed to create Gemini client: %w", err))
	}

	c.logger.Debug(ctx, "calling Gemini", map[string]interface{}{
		"model": model,
		"query": query,
	})
	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(query), c.generateConfig())
	if err != nil {
		return failed(err)
	}

	queries, citations := ParseResponse(resp)
	c.logger.Info(ctx, "Gemini response received", map[string]interface{}{
		"model":     model,
		"queries":   len(queries),
		"citations": len(citations),
	})
	return Result{
		Query:     query,
		Queries:   queries,
		Citations: citations,
		Model:     model,
		Mode:      mode,
		Source:    source,
	}
}

// TestKey issues a minimal ungrounded request with key.
func (c *Client) TestKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrNoAPIKey
	}
	client, err := c.newClient(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if _, err := client.Models.GenerateContent(ctx, c.cfg.OverviewModel, genai.Text(testPrompt), nil); err != nil {
		return fmt.Errorf("API test failed: %w", err)
	}
	return nil
}

func (c *Client) generateConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.cfg.Temperature),
		MaxOutputTokens: c.cfg.MaxOutputTokens,
		Tools:           []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
		},
	}
}

// ParseResponse collects the search queries the model issued and the web
// sources it grounded on. Queries are de-duplicated in first-seen order.
func ParseResponse(resp *genai.GenerateContentResponse) ([]string, []capture.Citation) {
	queries := []string{}
	citations := []capture.Citation{}
	if resp == nil {
		return queries, citations
	}

	seen := make(map[string]struct{})
	add := func(q string) {
		if q == "" {
			return
		}
		if _, ok := seen[q]; ok {
			return
		}
		seen[q] = struct{}{}
		queries = append(queries, q)
	}

	for _, cand := range resp.Candidates {
		if cand == nil {
			continue
		}
		if md := cand.GroundingMetadata; md != nil {
			for _, q := range md.WebSearchQueries {
				add(q)
			}
			for _, q := range md.RetrievalQueries {
				add(q)
			}
			for _, chunk := range md.GroundingChunks {
				if chunk == nil || chunk.Web == nil {
					continue
				}
				citations = append(citations, capture.Citation{URI: chunk.Web.URI, Title: chunk.Web.Title})
			}
		}
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.FunctionCall == nil || part.FunctionCall.Name != "google_search" {
				continue
			}
			if q, ok := part.FunctionCall.Args["query"].(string); ok {
				add(q)
			}
		}
	}
	return queries, citations
}
