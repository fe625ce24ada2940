package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gfurlani/fotocatalogo/config"
)

// Client talks to a local Ollama-compatible server. One request per call,
// no streaming; the pipeline wants whole cleaned strings.
type Client struct {
	endpoint string
	model    string
	opts     config.GenerationOptions
	http     *http.Client
}

// ErrServer marks a non-timeout generation failure so the orchestrator can
// separate it from deadline expiry.
var ErrServer = fmt.Errorf("llm server error")

func NewClient(cfg config.LLMVision) *Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		model:    cfg.Model,
		opts:     cfg.Generation,
		http:     &http.Client{Timeout: timeout},
	}
}

type generateOptions struct {
	NumPredict  int     `json:"num_predict"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	TopK        int     `json:"top_k"`
	MinP        float64 `json:"min_p"`
	NumCtx      int     `json:"num_ctx"`
	NumBatch    int     `json:"num_batch"`
}

type generateRequest struct {
	Model     string          `json:"model"`
	Prompt    string          `json:"prompt"`
	Images    []string        `json:"images,omitempty"`
	Stream    bool            `json:"stream"`
	Think     bool            `json:"think"`
	KeepAlive int             `json:"keep_alive"`
	Options   generateOptions `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Generate issues one vision completion. imageB64 is the pre-encoded JPEG
// payload; numPredict is the per-mode token budget.
func (c *Client) Generate(ctx context.Context, prompt, imageB64 string, numPredict int) (string, error) {
	return c.generate(ctx, prompt, imageB64, numPredict, c.opts.KeepAlive)
}

func (c *Client) generate(ctx context.Context, prompt, imageB64 string, numPredict, keepAlive int) (string, error) {
	reqBody := generateRequest{
		Model:     c.model,
		Prompt:    prompt,
		Stream:    false,
		Think:     false,
		KeepAlive: keepAlive,
		Options: generateOptions{
			NumPredict:  numPredict,
			Temperature: c.opts.Temperature,
			TopP:        c.opts.TopP,
			TopK:        c.opts.TopK,
			MinP:        c.opts.MinP,
			NumCtx:      c.opts.NumCtx,
			NumBatch:    c.opts.NumBatch,
		},
	}
	if imageB64 != "" {
		reqBody.Images = []string{imageB64}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("generation call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read generation response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrServer, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: unparseable response: %v", ErrServer, err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrServer, out.Error)
	}
	return out.Response, nil
}

// Warmup issues a tiny text-only completion so the server loads the model
// and keeps it resident; keep_alive is forced to -1 regardless of the
// configured value. Failure is logged, never fatal: the first real call
// will pay the load cost instead.
func (c *Client) Warmup(ctx context.Context) {
	_, err := c.generate(ctx, "Rispondi con una sola parola: pronto.", "", 8, -1)
	if err != nil {
		log.Printf("llm: warmup failed: %v", err)
		return
	}
	log.Printf("llm: model %s warmed up", c.model)
}
