package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"SignalSentinel/internal/logger"
	"SignalSentinel/internal/model"
)

const (
	DefaultOpenAIModel = openai.GPT4oMini
	systemPrompt       = `You are a cryptocurrency technical analyst. Given indicator values for one symbol, ` +
		`reply with a single JSON object with the fields: action ("buy", "sell" or "hold"), ` +
		`confidence (0-100), target_price, stop_loss, entry_price, reasoning (3 or 4 short strings), ` +
		`timeframe (for example "24h" or "7d") and risk_level ("low", "medium" or "high"). ` +
		`For buy the target is above entry and the stop below; for sell the reverse.`
)

// OpenAIGenerator asks a chat model for a recommendation in JSON mode.
type OpenAIGenerator struct {
	client        *openai.Client
	Model         string
	MaxRetries    uint64
	RetryInterval time.Duration
	log           zerolog.Logger
}

// NewOpenAIGenerator builds a generator. baseURL and httpClient are optional.
func NewOpenAIGenerator(apiKey, model, baseURL string, httpClient *http.Client) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIGenerator{
		client:        openai.NewClientWithConfig(cfg),
		Model:         model,
		MaxRetries:    3,
		RetryInterval: 500 * time.Millisecond,
		log:           logger.Component("openai"),
	}
}

func (g *OpenAIGenerator) Name() string { return "openai:" + g.Model }

func (g *OpenAIGenerator) Generate(ctx context.Context, in Input) (model.Candidate, error) {
	if in.Snapshot == nil {
		return model.Candidate{}, errors.New("snapshot is required")
	}
	req := openai.ChatCompletionRequest{
		Model:       g.Model,
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(in)},
		},
	}

	var content string
	operation := func() error {
		resp, err := g.client.CreateChatCompletion(ctx, req)
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			g.log.Warn().Err(err).Str("symbol", in.Symbol).Msg("openai request failed, retrying")
			return err
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(errors.New("openai returned no choices"))
		}
		content = resp.Choices[0].Message.Content
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.RetryInterval
	b.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, g.MaxRetries), ctx)); err != nil {
		return model.Candidate{}, fmt.Errorf("openai completion: %w", err)
	}

	cand, err := decodeCandidate(content)
	if err != nil {
		return model.Candidate{}, err
	}
	return cand, nil
}

func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func decodeCandidate(content string) (model.Candidate, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var cand model.Candidate
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &cand); err != nil {
		return model.Candidate{}, fmt.Errorf("%w: decode model output: %v", ErrInvalidCandidate, err)
	}
	return cand, nil
}

func buildPrompt(in Input) string {
	s := in.Snapshot
	var sb strings.Builder
	fmt.Fprintf(&sb, "Symbol: %s\nInterval: %s\n", in.Symbol, in.Interval)
	fmt.Fprintf(&sb, "Current price: %.6f\n", s.CurrentPrice)
	fmt.Fprintf(&sb, "Change (last candle): %.2f%%\n", s.PriceChange24h)
	fmt.Fprintf(&sb, "Volume (last 24 candles): %.2f\n", s.Volume24h)
	fmt.Fprintf(&sb, "RSI(14): %.2f\n", s.RSI)
	fmt.Fprintf(&sb, "MACD: line %.6f, signal %.6f, histogram %.6f\n", s.MACD.Line, s.MACD.Signal, s.MACD.Histogram)
	fmt.Fprintf(&sb, "EMA20: %.6f\nEMA50: %.6f\n", s.EMA20, s.EMA50)
	fmt.Fprintf(&sb, "Bollinger(20,2): upper %.6f, middle %.6f, lower %.6f\n", s.Bollinger.Upper, s.Bollinger.Middle, s.Bollinger.Lower)
	fmt.Fprintf(&sb, "Support: %.6f\nResistance: %.6f\n", s.Support, s.Resistance)
	if q := in.Quote; q != nil {
		fmt.Fprintf(&sb, "Live quote (%s): %.6f, 24h change %.2f%%, 24h volume %.2f", q.Source, q.Price, q.Change24h, q.Volume)
		if q.MarketCap > 0 {
			fmt.Fprintf(&sb, ", market cap %.0f", q.MarketCap)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
