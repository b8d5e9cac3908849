package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"starknet-pilot/internal/domain"
)

// DefaultTimeout is the default per-request timeout for the model API.
const DefaultTimeout = 30 * time.Second

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// fallbackConfidence replaces a confidence value the model failed to
// produce in a parseable form.
const fallbackConfidence = 0.5

// GeminiEngine implements Engine against the Gemini generateContent API.
type GeminiEngine struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// GeminiOption configures a GeminiEngine.
type GeminiOption func(*GeminiEngine)

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) GeminiOption {
	return func(e *GeminiEngine) {
		e.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) GeminiOption {
	return func(e *GeminiEngine) {
		e.httpClient = client
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) GeminiOption {
	return func(e *GeminiEngine) {
		e.httpClient.Timeout = timeout
	}
}

// NewGeminiEngine creates an engine for the given model.
func NewGeminiEngine(apiKey, model string, log zerolog.Logger, opts ...GeminiOption) *GeminiEngine {
	e := &GeminiEngine{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		log: log.With().Str("component", "gemini").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compile-time interface check.
var _ Engine = (*GeminiEngine)(nil)

// Predict asks the model for a recommendation. Provider failures and
// unparseable replies degrade to a zero-confidence HOLD.
func (e *GeminiEngine) Predict(ctx context.Context, snapshot *domain.MarketSnapshot) (*domain.Recommendation, error) {
	text, err := e.generate(ctx, buildPrompt(snapshot))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.log.Warn().Err(err).Msg("model call failed, holding")
		return holdFallback(), nil
	}

	rec, err := parseRecommendation(text)
	if err != nil {
		e.log.Warn().Err(err).Msg("unparseable model reply, holding")
		return holdFallback(), nil
	}
	return rec, nil
}

// generate calls the generateContent endpoint and returns the reply text.
func (e *GeminiEngine) generate(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", e.baseURL, e.model, e.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("model request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model returned status %d", resp.StatusCode)
	}

	var body generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(body.Candidates) == 0 || len(body.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty model reply")
	}

	return body.Candidates[0].Content.Parts[0].Text, nil
}

// buildPrompt renders the snapshot into the fixed four-line reply format
// the parser expects.
func buildPrompt(s *domain.MarketSnapshot) string {
	var b strings.Builder
	b.WriteString("You are a DeFi liquidity manager. Based on the market data, recommend an action.\n\n")
	fmt.Fprintf(&b, "Pair: %s\n", s.Pair)
	fmt.Fprintf(&b, "Price: %.2f\n", s.Price)
	fmt.Fprintf(&b, "24h volume: %.0f\n", s.Volume24h)
	fmt.Fprintf(&b, "Volatility: %.4f\n", s.Volatility)
	fmt.Fprintf(&b, "Trend: %s\n\n", s.Trend)
	b.WriteString("Reply with exactly four lines:\n")
	b.WriteString("ACTION: one of REBALANCE, ADD_LIQUIDITY, REMOVE_LIQUIDITY, HOLD\n")
	b.WriteString("REASONING: one sentence\n")
	b.WriteString("RANGE: lower-upper price range, or NONE\n")
	b.WriteString("CONFIDENCE: a number between 0 and 1\n")
	return b.String()
}

// parseRecommendation extracts the structured recommendation from the
// model's line-oriented reply.
func parseRecommendation(text string) (*domain.Recommendation, error) {
	rec := &domain.Recommendation{
		Confidence: fallbackConfidence,
	}

	var actionSeen bool
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "ACTION":
			action := domain.TradeAction(strings.ToUpper(value))
			switch action {
			case domain.ActionRebalance, domain.ActionAddLiquidity,
				domain.ActionRemoveLiquidity, domain.ActionHold:
				rec.Action = action
				actionSeen = true
			}
		case "REASONING":
			rec.Rationale = value
		case "RANGE":
			rec.Range = parseRange(value)
		case "CONFIDENCE":
			if c, err := strconv.ParseFloat(value, 64); err == nil && c >= 0 && c <= 1 {
				rec.Confidence = c
			}
		}
	}

	if !actionSeen {
		return nil, fmt.Errorf("no recognizable action in reply")
	}
	return rec, nil
}

// parseRange parses "lower-upper". Anything else yields no range.
func parseRange(value string) *domain.PriceRange {
	lowerStr, upperStr, found := strings.Cut(value, "-")
	if !found {
		return nil
	}
	lower, err := strconv.ParseFloat(strings.TrimSpace(lowerStr), 64)
	if err != nil {
		return nil
	}
	upper, err := strconv.ParseFloat(strings.TrimSpace(upperStr), 64)
	if err != nil {
		return nil
	}
	if lower >= upper {
		return nil
	}
	return &domain.PriceRange{Lower: lower, Upper: upper}
}

// Gemini API message types

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}
