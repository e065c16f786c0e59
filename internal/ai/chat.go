package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// UpstreamError indicates a chat model failure or timeout. It is
// recoverable: the caller's conversation state is left unchanged and the
// question may be retried.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("chat model call failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ChatModel completes a prompt into an answer. Implementations surface
// transient and permanent backend failures alike as UpstreamError.
type ChatModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Error      *geminiAPIError   `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// GeminiChat calls the Gemini generateContent REST endpoint. Calls go
// through a circuit breaker so a dead backend fails fast instead of
// stacking up 30s timeouts, and transient failures are retried with
// exponential backoff.
type GeminiChat struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	maxRetries int
}

func NewGeminiChat(apiKey, apiURL string) *GeminiChat {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "gemini-chat",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &GeminiChat{
		apiKey: apiKey,
		apiURL: apiURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		breaker:    breaker,
		maxRetries: 2,
	}
}

func (g *GeminiChat) Complete(ctx context.Context, prompt string) (string, error) {
	request := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(1<<(attempt-1)) * time.Second):
			case <-ctx.Done():
				return "", &UpstreamError{Err: ctx.Err()}
			}
		}

		result, err := g.breaker.Execute(func() (interface{}, error) {
			return g.makeRequest(ctx, request)
		})
		if err == nil {
			return result.(string), nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", &UpstreamError{Err: ctx.Err()}
		}
	}

	return "", &UpstreamError{Err: fmt.Errorf("failed after %d attempts: %v", g.maxRetries+1, lastErr)}
}

func (g *GeminiChat) makeRequest(ctx context.Context, request geminiRequest) (string, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL+"?key="+g.apiKey, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %v", err)
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		// Error bodies from proxies and gateways are often not JSON at
		// all; report the status instead of an unmarshal error.
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncateBody(body))
		}
		return "", fmt.Errorf("failed to unmarshal response: %v", err)
	}

	if geminiResp.Error != nil {
		return "", fmt.Errorf("API error: %s (code: %d)", geminiResp.Error.Message, geminiResp.Error.Code)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncateBody(body))
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	answer := ""
	for _, part := range geminiResp.Candidates[0].Content.Parts {
		answer += part.Text
	}
	return answer, nil
}

func truncateBody(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}

// EstimateTokens gives a rough token count (~4 characters per token) used
// for usage accounting in responses.
func EstimateTokens(text string) int {
	return len(text) / 4
}
