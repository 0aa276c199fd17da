package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-3-pro-preview"

// Gemini pricing (per million tokens)
const (
	geminiInputPricePerMillion  = 2.00
	geminiOutputPricePerMillion = 12.00
)

// GeminiConfig holds everything the analyzer needs to reach the model.
// The credential is injected here; the analyzer never reads the environment.
type GeminiConfig struct {
	APIKey  string
	Model   string // Defaults to DefaultModel
	BaseURL string // Optional API endpoint override
}

// contentGenerator is the subset of genai.Models used by the analyzer.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiAnalyzer uses Google's Gemini API with search grounding to research an item.
type GeminiAnalyzer struct {
	cfg          GeminiConfig
	newGenerator func(ctx context.Context, cfg GeminiConfig) (contentGenerator, error)
}

// NewGeminiAnalyzer creates a new Gemini-based analyzer. A missing API key is
// not an error here; it is reported by each Analyze call.
func NewGeminiAnalyzer(cfg GeminiConfig) *GeminiAnalyzer {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &GeminiAnalyzer{cfg: cfg, newGenerator: newGenAIGenerator}
}

func newGenAIGenerator(ctx context.Context, cfg GeminiConfig) (contentGenerator, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client.Models, nil
}

// Model returns the model name requests are sent to.
func (g *GeminiAnalyzer) Model() string {
	return g.cfg.Model
}

// Analyze implements the Analyzer interface.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, req AnalysisRequest, onProgress ProgressFunc) (*AnalysisResult, error) {
	raw, err := g.Generate(ctx, req, onProgress)
	if err != nil {
		return nil, err
	}

	listing, err := ParseListing(raw.Text)
	if err != nil {
		return nil, err
	}

	return &AnalysisResult{Listing: listing, Citations: raw.Citations, Usage: raw.Usage}, nil
}

// Generate issues the single model call for req and returns the raw response.
// Exactly one progress notification is emitted, right before the call.
func (g *GeminiAnalyzer) Generate(ctx context.Context, req AnalysisRequest, onProgress ProgressFunc) (*RawResponse, error) {
	if g.cfg.APIKey == "" {
		return nil, ErrMissingCredential
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	gen, err := g.newGenerator(ctx, g.cfg)
	if err != nil {
		return nil, newTransportError(err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(req.Image, req.MIMEType),
			genai.NewPartFromText(BuildPrompt(req.Location)),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		Tools:            []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		ResponseMIMEType: "application/json",
	}

	if onProgress != nil {
		onProgress(ProgressMessage(req.Location))
	}

	result, err := gen.GenerateContent(ctx, g.cfg.Model, contents, config)
	if err != nil {
		log.Error().Err(err).Str("model", g.cfg.Model).Msg("listing research llm call failed")
		return nil, newTransportError(err)
	}

	usage := Usage{}
	if result.UsageMetadata != nil {
		usage.InputTokens = int64(result.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int64(result.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int64(result.UsageMetadata.TotalTokenCount)
		usage.CostUSD = calculateGeminiCost(usage.InputTokens, usage.OutputTokens, geminiInputPricePerMillion, geminiOutputPricePerMillion)
	}

	citations := CitationsFromResponse(result)

	log.Info().
		Str("model", g.cfg.Model).
		Str("promptVersion", PromptVersion).
		Str("location", req.Location).
		Int("imageBytes", len(req.Image)).
		Int("citations", len(citations)).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Msg("listing research llm call")

	return &RawResponse{Text: result.Text(), Citations: citations, Usage: usage}, nil
}

func calculateGeminiCost(inputTokens, outputTokens int64, inputPrice, outputPrice float64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * inputPrice
	outputCost := float64(outputTokens) / 1_000_000 * outputPrice
	return inputCost + outputCost
}
