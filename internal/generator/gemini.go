package generator

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/network/standard"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"golang.org/x/time/rate"

	"DopamineBreaker/internal/cache"
)

// GeminiConfig Gemini REST 客户端配置
type GeminiConfig struct {
	APIKey         string
	Model          string
	Endpoint       string
	Timeout        time.Duration
	CallsPerMinute int
	BreakerFails   int
	BreakerReset   time.Duration
}

// GeminiClient 调用 models/{model}:generateContent
type GeminiClient struct {
	cfg     GeminiConfig
	http    *client.Client
	limiter *rate.Limiter
	breaker *cache.CircuitBreaker
}

func NewGeminiClient(cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoClient
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.CallsPerMinute <= 0 {
		cfg.CallsPerMinute = 6
	}

	httpClient, err := client.NewClient(
		client.WithDialer(standard.NewDialer()),
		client.WithTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}),
		client.WithDialTimeout(10*time.Second),
		client.WithClientReadTimeout(cfg.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("create gemini http client: %w", err)
	}

	return &GeminiClient{
		cfg:     cfg,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.CallsPerMinute)), 1),
		breaker: cache.NewCircuitBreaker("gemini", cfg.BreakerFails, cfg.BreakerReset),
	}, nil
}

func (c *GeminiClient) Model() string {
	return c.cfg.Model
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		ResponseMimeType string  `json:"responseMimeType"`
		Temperature      float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GenerateContent 单次请求，受限流、熔断和超时约束
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("gemini rate limit: %w", err)
	}

	var text string
	err := c.breaker.Call(ctx, func() error {
		var callErr error
		text, callErr = c.do(ctx, prompt)
		return callErr
	})
	return text, err
}

func (c *GeminiClient) do(ctx context.Context, prompt string) (string, error) {
	body := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	}
	body.GenerationConfig.ResponseMimeType = "application/json"
	body.GenerationConfig.Temperature = 0.9

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer protocol.ReleaseRequest(req)
	defer protocol.ReleaseResponse(resp)

	url := strings.TrimRight(c.cfg.Endpoint, "/") + "/models/" + c.cfg.Model + ":generateContent"
	req.SetMethod(consts.MethodPost)
	req.SetRequestURI(url)
	req.Header.SetContentTypeBytes([]byte(consts.MIMEApplicationJSON))
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)
	req.SetBody(payload)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.cfg.Timeout)
	}
	if err := c.http.DoDeadline(ctx, req, resp, deadline); err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}

	var out geminiResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("gemini response status %d: %w", resp.StatusCode(), err)
	}
	if resp.StatusCode() != consts.StatusOK {
		if out.Error != nil {
			return "", fmt.Errorf("gemini status %d: %s", resp.StatusCode(), out.Error.Message)
		}
		return "", fmt.Errorf("gemini status %d", resp.StatusCode())
	}

	return collectText(&out)
}

func collectText(out *geminiResponse) (string, error) {
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range out.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini returned empty content (finish reason %s)", out.Candidates[0].FinishReason)
	}
	return sb.String(), nil
}
