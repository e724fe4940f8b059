package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"docchunker/backoff"
	"docchunker/config"
	"docchunker/types"
)

const systemPrompt = `You are a helpful assistant that answers questions based on the provided document chunks.
Only use the information from the provided chunks to answer questions.
If the answer cannot be found in the chunks, say so clearly.
Be concise and accurate in your responses.`

type Prompt struct {
	System string
	User   string
}

func (p Prompt) String() string {
	return p.System + "\n\n" + p.User
}

// BuildPrompt wraps the assembled chunk context and the user's question in
// the fixed answering instructions.
func BuildPrompt(chunkContext, question string) Prompt {
	user := fmt.Sprintf(`Context from document chunks:
%s

---

User Question: %s

Please answer based on the context provided above.`, chunkContext, question)

	return Prompt{System: systemPrompt, User: user}
}

// Completer answers a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// AzureOpenAI calls the chat completions endpoint of an Azure OpenAI deployment.
type AzureOpenAI struct {
	client *resty.Client
	cfg    config.CompletionConfig
	retry  backoff.Config
	logger *slog.Logger
}

func NewAzureOpenAI(cfg config.CompletionConfig, retry backoff.Config, logger *slog.Logger) *AzureOpenAI {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Endpoint, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("api-key", cfg.Key)

	return &AzureOpenAI{
		client: client,
		cfg:    cfg,
		retry:  retry,
		logger: logger,
	}
}

func (a *AzureOpenAI) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if a.cfg.Endpoint == "" || a.cfg.Deployment == "" {
		return "", &types.ServiceError{Service: types.ServiceCompletion, Message: "endpoint or deployment is not configured"}
	}

	start := time.Now()
	defer func() {
		a.logger.Info("completion finished", "took", time.Since(start))
	}()

	body := chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
	}

	return backoff.Do(ctx, a.retry, types.IsRateLimited, func(ctx context.Context) (string, error) {
		return a.complete(ctx, body)
	})
}

func (a *AzureOpenAI) complete(ctx context.Context, body chatRequest) (string, error) {
	var out chatResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParam("api-version", a.cfg.APIVersion).
		SetPathParam("deployment", a.cfg.Deployment).
		SetBody(body).
		SetResult(&out).
		Post("/openai/deployments/{deployment}/chat/completions")
	if err != nil {
		return "", &types.ServiceError{Service: types.ServiceCompletion, Message: "request failed", Err: err}
	}
	if resp.IsError() {
		msg := http.StatusText(resp.StatusCode())
		var env apiErrorEnvelope
		if json.Unmarshal(resp.Body(), &env) == nil && env.Error.Message != "" {
			msg = env.Error.Message
		}
		return "", &types.ServiceError{Service: types.ServiceCompletion, Status: resp.StatusCode(), Message: msg}
	}
	if len(out.Choices) == 0 {
		return "", &types.ServiceError{Service: types.ServiceCompletion, Message: "response has no choices"}
	}
	return out.Choices[0].Message.Content, nil
}
