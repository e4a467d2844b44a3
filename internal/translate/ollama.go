package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "deepseek-v3.2:cloud"

	// Sampling options per mode. Refinement gets a larger context window
	// because whole chunks of already-translated prose go in at once.
	translateTemperature = 0.1
	translateContext     = 4096
	refineTemperature    = 0.2
	refineContext        = 8192
)

// OllamaClient implements Client against an Ollama-style /api/generate
// endpoint. Transient failures (connection errors, 429, 5xx) are retried
// with backoff; a malformed or miscounted response is surfaced to the caller
// without retrying, since the patcher is the designated retry path.
type OllamaClient struct {
	baseURL  string
	model    string
	attempts uint
	client   *http.Client
}

// NewOllamaClient creates a client for the endpoint at baseURL using model.
// Empty arguments fall back to defaults. timeout bounds a single request.
func NewOllamaClient(baseURL, model string, timeout time.Duration) *OllamaClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &OllamaClient{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		model:    model,
		attempts: 5,
		client:   &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Format  string         `json:"format"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Translate implements Client.
func (c *OllamaClient) Translate(ctx context.Context, req Request) ([]string, error) {
	prompt := buildTranslatePrompt(req)
	return c.generate(ctx, prompt, "translations", translateTemperature, translateContext, len(req.Sentences))
}

// Refine implements Client.
func (c *OllamaClient) Refine(ctx context.Context, req Request) ([]string, error) {
	prompt := buildRefinePrompt(req)
	return c.generate(ctx, prompt, "refined", refineTemperature, refineContext, len(req.Sentences))
}

func (c *OllamaClient) generate(ctx context.Context, prompt, key string, temperature float64, numCtx, want int) ([]string, error) {
	if want == 0 {
		return nil, nil
	}

	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Format: "json",
		Stream: false,
		Options: map[string]any{
			"temperature": temperature,
			"num_ctx":     numCtx,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	raw, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}

	var genResp generateResponse
	if err := json.Unmarshal(raw, &genResp); err != nil {
		return nil, fmt.Errorf("failed to decode endpoint response: %w", err)
	}

	list, err := extractStringList(genResp.Response, key)
	if err != nil {
		return nil, err
	}
	if len(list) != want {
		return nil, fmt.Errorf("endpoint returned %d results for %d sentences", len(list), want)
	}
	return list, nil
}

// statusError marks HTTP statuses; only rate limits and server errors retry.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("endpoint returned status %d", e.code)
}

func (e *statusError) transient() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

// post performs the HTTP round trip with retries on transient failures.
func (c *OllamaClient) post(ctx context.Context, body []byte) ([]byte, error) {
	var raw []byte
	err := retry.Do(
		func() error {
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
			if err != nil {
				return err
			}
			httpReq.Header.Set("Content-Type", "application/json")

			resp, err := c.client.Do(httpReq)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return &statusError{code: resp.StatusCode}
			}
			raw, err = io.ReadAll(resp.Body)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(3*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var se *statusError
			if errors.As(err, &se) {
				return se.transient()
			}
			return true
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("endpoint request failed: %w", err)
	}
	return raw, nil
}

func buildTranslatePrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a master Mongolian literary translator. Book: %q. Context: %s.\n", req.BookTitle, req.Context)
	b.WriteString("Translate each English sentence below to formal Mongolian Cyrillic, maintaining narrative tone.\n")
	fmt.Fprintf(&b, "Return ONLY a JSON object {\"translations\": [...]} with exactly %d strings, one per sentence, in order.\n", len(req.Sentences))
	b.WriteString("\nEnglish sentences:\n")
	for _, s := range req.Sentences {
		b.WriteString(s)
		b.WriteByte('\n')
	}
	return b.String()
}

func buildRefinePrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a master Mongolian book editor polishing %q.\n", req.BookTitle)
	b.WriteString("Rewrite each Mongolian sentence below as polished, professional Mongolian literature. Preserve meaning, names, and terminology.\n")
	fmt.Fprintf(&b, "Return ONLY a JSON object {\"refined\": [...]} with exactly %d strings, one per sentence, in order.\n", len(req.Sentences))
	b.WriteString("\nSentences:\n")
	for _, s := range req.Sentences {
		b.WriteString(s)
		b.WriteByte('\n')
	}
	return b.String()
}

// trailingCommaRe repairs ",}" and ",]", the most common JSON damage in
// model output.
var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// jsonPayloadRe grabs the outermost object or array embedded in free text.
var jsonPayloadRe = regexp.MustCompile(`(?s)(\{.*\}|\[.*\])`)

// extractStringList pulls a list of strings out of model output. The model is
// asked for {"<key>": [...]}, but a bare JSON array is accepted too. Control
// characters are stripped before parsing.
func extractStringList(text, key string) ([]string, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r >= 32 || r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		return -1
	}, text)

	payload := jsonPayloadRe.FindString(cleaned)
	if payload == "" {
		return nil, fmt.Errorf("no JSON payload in endpoint output")
	}
	payload = trailingCommaRe.ReplaceAllString(payload, "$1")

	if strings.HasPrefix(payload, "[") {
		var list []string
		if err := json.Unmarshal([]byte(payload), &list); err != nil {
			return nil, fmt.Errorf("malformed JSON array in endpoint output: %w", err)
		}
		return list, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &obj); err != nil {
		return nil, fmt.Errorf("malformed JSON object in endpoint output: %w", err)
	}
	rawList, ok := obj[key]
	if !ok {
		return nil, fmt.Errorf("endpoint output missing %q field", key)
	}
	var list []string
	if err := json.Unmarshal(rawList, &list); err != nil {
		return nil, fmt.Errorf("malformed %q list in endpoint output: %w", key, err)
	}
	return list, nil
}
