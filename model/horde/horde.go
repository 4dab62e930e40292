// Package horde provides a generation backend for AI Horde, a crowdsourced
// inference network. Requests are submitted asynchronously and polled until a
// worker finishes them.
package horde

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/rsamesh/core"
	"github.com/hupe1980/rsamesh/model"
)

const (
	// DefaultBaseURL is the public AI Horde API.
	DefaultBaseURL = "https://stablehorde.net/api/v2"
	// AnonymousAPIKey is accepted by AI Horde with the lowest priority.
	AnonymousAPIKey = "0000000000"
	// DefaultModel is the text model requested by default.
	DefaultModel = "koboldcpp/LLaMA2-13B-Tiefighter"
)

var (
	// ErrFaulted is returned when the horde reports a faulted generation.
	ErrFaulted = errors.New("horde generation faulted")
	// ErrPollTimeout is returned when a request is not done after MaxPolls.
	ErrPollTimeout = errors.New("horde generation timed out")
)

// Options configures a Model.
type Options struct {
	BaseURL      string
	APIKey       string // default: HORDE_API_KEY, then AnonymousAPIKey
	Model        string
	TopP         float64
	PollInterval time.Duration
	MaxPolls     int
	RateLimit    float64 // requests per second across submit and poll calls
	HTTPClient   *http.Client
}

// Model talks to the AI Horde text generation API.
type Model struct {
	opts    Options
	client  *http.Client
	limiter *rate.Limiter
}

// NewModel creates a Model. Defaults poll once per second for up to two minutes.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{
		BaseURL:      DefaultBaseURL,
		APIKey:       os.Getenv("HORDE_API_KEY"),
		Model:        DefaultModel,
		TopP:         0.9,
		PollInterval: time.Second,
		MaxPolls:     120,
		RateLimit:    2,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.APIKey == "" {
		opts.APIKey = AnonymousAPIKey
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	return &Model{opts: opts, client: opts.HTTPClient, limiter: rate.NewLimiter(limit, 1)}
}

// Info implements model.Model.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "horde"}
}

type submitParams struct {
	MaxLength   int     `json:"max_length"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	N           int     `json:"n"`
}

type submitRequest struct {
	Prompt         string       `json:"prompt"`
	Params         submitParams `json:"params"`
	Models         []string     `json:"models"`
	TrustedWorkers bool         `json:"trusted_workers"`
}

type submitResponse struct {
	ID string `json:"id"`
}

type statusResponse struct {
	Done        bool `json:"done"`
	Faulted     bool `json:"faulted"`
	Generations []struct {
		Text string `json:"text"`
	} `json:"generations"`
}

// Generate implements core.GenerationBackend.
func (m *Model) Generate(ctx context.Context, req core.GenerationRequest) (string, error) {
	id, err := m.submit(ctx, req)
	if err != nil {
		return "", err
	}

	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < m.opts.MaxPolls; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		status, err := m.status(ctx, id)
		if err != nil {
			return "", err
		}
		if status.Done {
			if len(status.Generations) == 0 || status.Generations[0].Text == "" {
				return "", fmt.Errorf("horde request %s: no text in completed generation", id)
			}
			return status.Generations[0].Text, nil
		}
		if status.Faulted {
			return "", fmt.Errorf("%w: request %s", ErrFaulted, id)
		}
	}

	return "", fmt.Errorf("%w: request %s after %d polls", ErrPollTimeout, id, m.opts.MaxPolls)
}

func (m *Model) submit(ctx context.Context, req core.GenerationRequest) (string, error) {
	body, err := json.Marshal(submitRequest{
		Prompt: req.Prompt,
		Params: submitParams{
			MaxLength:   req.MaxLength,
			Temperature: req.Temperature,
			TopP:        m.opts.TopP,
			N:           1,
		},
		Models: []string{m.opts.Model},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	resp, err := m.do(ctx, http.MethodPost, "/generate/text/async", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("horde request failed: %d %s", resp.StatusCode, bytes.TrimSpace(raw))
	}

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	if out.ID == "" {
		return "", errors.New("horde request failed: no request id returned")
	}

	return out.ID, nil
}

func (m *Model) status(ctx context.Context, id string) (*statusResponse, error) {
	resp, err := m.do(ctx, http.MethodGet, "/generate/text/status/"+id, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("horde status failed: %d", resp.StatusCode)
	}

	var out statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	return &out, nil
}

func (m *Model) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, m.opts.BaseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("apikey", m.opts.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("horde %s %s: %w", method, path, err)
	}
	return resp, nil
}
