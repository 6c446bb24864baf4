package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/VE7LTX/echoframe/internal/models"
)

// Enricher produces an optional summary for an aligned transcript. Any
// failure here is non-fatal: the caller keeps the unenriched record.
type Enricher interface {
	Enrich(ctx context.Context, transcript []models.AlignedSegment) (*models.Enrichment, error)
	Name() string
}

const (
	defaultEnrichTimeout   = 60 * time.Second
	defaultSummaryPrompt   = "Summarize the key points in 3-5 bullets."
	defaultSentimentPrompt = "Describe the overall sentiment in one sentence."
	enrichModel            = "gpt-4o-mini"
)

// EnricherConfig configures the HTTP enricher. Zero-valued prompts and
// timeout fall back to defaults.
type EnricherConfig struct {
	APIURL          string
	APIKey          string
	SummaryPrompt   string
	SentimentPrompt string
	Timeout         time.Duration
}

// HTTPEnricher calls a chat-completion style endpoint once for the summary
// and once for the sentiment, parsing each from the first choice.
type HTTPEnricher struct {
	cfg    EnricherConfig
	client *http.Client
}

func NewHTTPEnricher(cfg EnricherConfig) *HTTPEnricher {
	if cfg.SummaryPrompt == "" {
		cfg.SummaryPrompt = defaultSummaryPrompt
	}
	if cfg.SentimentPrompt == "" {
		cfg.SentimentPrompt = defaultSentimentPrompt
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultEnrichTimeout
	}
	return &HTTPEnricher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Enrich returns a summary and, when the second call succeeds, a sentiment.
// A failed sentiment call keeps the summary rather than discarding the
// whole enrichment.
func (e *HTTPEnricher) Enrich(ctx context.Context, transcript []models.AlignedSegment) (*models.Enrichment, error) {
	if len(transcript) == 0 {
		return nil, NewEnrichmentError(fmt.Errorf("empty transcript"))
	}
	flat := flattenTranscript(transcript)

	summary, err := e.chat(ctx, e.cfg.SummaryPrompt, flat)
	if err != nil {
		return nil, err
	}
	enr := &models.Enrichment{
		Summary:   summary,
		Model:     enrichModel,
		CreatedAt: time.Now().UTC(),
	}
	if sentiment, err := e.chat(ctx, e.cfg.SentimentPrompt, flat); err == nil {
		enr.Sentiment = sentiment
	}
	return enr, nil
}

// chat sends one completion request and returns the trimmed content of the
// first choice.
func (e *HTTPEnricher) chat(ctx context.Context, systemPrompt, userContent string) (string, error) {
	payload := chatRequest{
		Model: enrichModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", NewEnrichmentError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return "", NewEnrichmentError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", NewEnrichmentError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", NewEnrichmentError(err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", NewEnrichmentError(fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(raw)))
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return "", NewEnrichmentError(fmt.Errorf("failed to parse response: %w", err))
	}
	if len(cr.Choices) == 0 {
		return "", NewEnrichmentError(fmt.Errorf("response contained no choices"))
	}
	return strings.TrimSpace(cr.Choices[0].Message.Content), nil
}

func (e *HTTPEnricher) Name() string { return "http" }

// flattenTranscript renders the aligned transcript as "Speaker: text"
// lines, using "Unknown" for unlabeled segments.
func flattenTranscript(transcript []models.AlignedSegment) string {
	var b strings.Builder
	for _, seg := range transcript {
		label := "Unknown"
		if seg.SpeakerLabel != nil {
			label = *seg.SpeakerLabel
		}
		fmt.Fprintf(&b, "%s: %s\n", label, seg.Text)
	}
	return b.String()
}
