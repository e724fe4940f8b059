package model

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"docchunker/backoff"
	"docchunker/config"
	"docchunker/types"
)

// Extractor turns a stored binary document into plain text.
type Extractor interface {
	Extract(ctx context.Context, path, filename string) (string, error)
}

// DocumentIntelligence extracts text with the Azure Document Intelligence
// read model: it submits the file, then polls the returned operation until it
// leaves the running state.
type DocumentIntelligence struct {
	client *resty.Client
	cfg    config.ExtractionConfig
	retry  backoff.Config
	logger *slog.Logger
}

type analyzeLine struct {
	Content string `json:"content"`
}

type analyzePage struct {
	Lines []analyzeLine `json:"lines"`
}

type analyzeResult struct {
	Status        string `json:"status"`
	AnalyzeResult *struct {
		Pages []analyzePage `json:"pages"`
	} `json:"analyzeResult"`
	Error *azureError `json:"error"`
}

type azureError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type azureErrorEnvelope struct {
	Error azureError `json:"error"`
}

func NewDocumentIntelligence(cfg config.ExtractionConfig, retry backoff.Config, logger *slog.Logger) *DocumentIntelligence {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Endpoint, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Ocp-Apim-Subscription-Key", cfg.Key)

	return &DocumentIntelligence{
		client: client,
		cfg:    cfg,
		retry:  retry,
		logger: logger,
	}
}

// Extract retries the whole submit-and-poll cycle when the service rate limits.
func (d *DocumentIntelligence) Extract(ctx context.Context, path, filename string) (string, error) {
	if d.cfg.Endpoint == "" {
		return "", &types.ServiceError{Service: types.ServiceExtraction, Message: "endpoint is not configured"}
	}

	start := time.Now()
	d.logger.Info("analyzing document", "filename", filename)

	text, err := backoff.Do(ctx, d.retry, types.IsRateLimited, func(ctx context.Context) (string, error) {
		return d.analyze(ctx, path, filename)
	})
	if err != nil {
		d.logger.Error("document analysis failed", "filename", filename, "error", err)
		return "", err
	}

	d.logger.Info("document analyzed", "filename", filename, "chars", len(text), "took", time.Since(start))
	return text, nil
}

func (d *DocumentIntelligence) analyze(ctx context.Context, path, filename string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	resp, err := d.client.R().
		SetContext(ctx).
		SetQueryParam("api-version", d.cfg.APIVersion).
		SetFileReader("file", filename, file).
		Post(fmt.Sprintf("/formrecognizer/documentModels/%s:analyze", d.cfg.Model))
	if err != nil {
		return "", &types.ServiceError{Service: types.ServiceExtraction, Message: "submit document", Err: err}
	}
	if resp.IsError() {
		return "", responseError(resp)
	}

	operation := resp.Header().Get("Operation-Location")
	if operation == "" {
		return "", &types.ServiceError{Service: types.ServiceExtraction, Message: "no operation location received"}
	}

	return d.poll(ctx, operation)
}

func (d *DocumentIntelligence) poll(ctx context.Context, operation string) (string, error) {
	var result analyzeResult
	for attempt := 1; attempt <= d.cfg.MaxPolls; attempt++ {
		timer := time.NewTimer(d.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}

		result = analyzeResult{}
		resp, err := d.client.R().
			SetContext(ctx).
			SetResult(&result).
			Get(operation)
		if err != nil {
			return "", &types.ServiceError{Service: types.ServiceExtraction, Message: "poll analysis", Err: err}
		}
		if resp.IsError() {
			return "", responseError(resp)
		}

		d.logger.Debug("analysis status", "status", result.Status, "attempt", attempt)
		if !pending(result.Status) {
			break
		}
	}

	switch {
	case strings.EqualFold(result.Status, "succeeded"):
		return result.text(), nil
	case pending(result.Status):
		return "", &types.ServiceError{
			Service: types.ServiceExtraction,
			Message: fmt.Sprintf("analysis still %s after %d polls", result.Status, d.cfg.MaxPolls),
		}
	}

	msg := fmt.Sprintf("document analysis failed with status: %s", result.Status)
	if result.Error != nil && result.Error.Message != "" {
		msg += ": " + result.Error.Message
	}
	return "", &types.ServiceError{Service: types.ServiceExtraction, Message: msg}
}

func pending(status string) bool {
	return strings.EqualFold(status, "running") || strings.EqualFold(status, "notStarted")
}

// text joins every line of every page, one line per row.
func (r *analyzeResult) text() string {
	if r.AnalyzeResult == nil {
		return ""
	}
	var b strings.Builder
	for _, page := range r.AnalyzeResult.Pages {
		for _, line := range page.Lines {
			b.WriteString(line.Content)
			b.WriteString("\n")
		}
	}
	return strings.TrimSpace(b.String())
}

func responseError(resp *resty.Response) error {
	msg := http.StatusText(resp.StatusCode())
	var env azureErrorEnvelope
	if err := json.Unmarshal(resp.Body(), &env); err == nil && env.Error.Message != "" {
		msg = env.Error.Message
	}
	return &types.ServiceError{
		Service: types.ServiceExtraction,
		Status:  resp.StatusCode(),
		Message: msg,
	}
}
