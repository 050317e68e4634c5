// ABOUTME: HTTP client for the Gemini generateContent endpoint
// ABOUTME: Submits assembled transcript parts with decoding and safety settings

package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/harmonie-ai/harmonie/internal/transcript"
)

// DefaultBaseURL is the Gemini REST endpoint root.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// maxErrorBodyBytes caps how much of a failed response body is read for
// error messages.
const maxErrorBodyBytes = 4 << 10

// Client calls the Gemini generateContent API. It performs exactly one
// outbound call per Generate invocation and never retries internally;
// retry policy belongs to the caller.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientConfig holds construction parameters for Client.
type ClientConfig struct {
	// APIKey authenticates against the provider. Required.
	APIKey string
	// Model is the model name, e.g. "gemini-1.5-pro". Required.
	Model string
	// BaseURL overrides the endpoint root. Defaults to DefaultBaseURL.
	BaseURL string
	// HTTPClient overrides the transport. Defaults to http.DefaultClient;
	// call deadlines come from the Generate context, not the client.
	HTTPClient *http.Client
	// Logger for request-level debug logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// NewClient creates a Gemini client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("gemini: model is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger.With("component", "gemini"),
	}, nil
}

// Wire types for the generateContent request and response.

type wirePart struct {
	Text string `json:"text"`
}

type wireContent struct {
	Role  string     `json:"role"`
	Parts []wirePart `json:"parts"`
}

type generateRequest struct {
	Contents         []wireContent   `json:"contents"`
	GenerationConfig DecodingConfig  `json:"generationConfig"`
	SafetySettings   []SafetySetting `json:"safetySettings"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []wirePart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Generate submits the assembled parts and returns the generated text
// verbatim. The call is bounded by ctx; on timeout it fails with
// KindProviderUnavailable rather than hanging.
//
// The whole prompt is flattened into a single user-role content: the
// system part travels as raw text, user parts are prefixed "input: ",
// model parts "output: ", and a trailing "output: " primer cues the
// model to continue the transcript.
func (c *Client) Generate(ctx context.Context, parts []transcript.Part, decoding DecodingConfig, safety []SafetySetting) (string, error) {
	if err := validateDecoding(decoding); err != nil {
		return "", err
	}
	if err := validateSafety(safety); err != nil {
		return "", err
	}

	req := generateRequest{
		Contents:         []wireContent{{Role: "user", Parts: encodeParts(parts)}},
		GenerationConfig: decoding,
		SafetySettings:   safety,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	// The key goes in a header, not the query string, so transport
	// errors (which embed the full URL) never carry the credential.
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	c.logger.Debug("generate request", "model", c.model, "parts", len(parts))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &GenerationError{Kind: KindProviderUnavailable, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", &GenerationError{
			Kind: KindProviderUnavailable,
			Err:  fmt.Errorf("provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))),
		}
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", &GenerationError{Kind: KindMalformed, Err: fmt.Errorf("decoding response: %w", err)}
	}

	return extractText(&genResp)
}

// encodeParts flattens transcript parts into wire text parts using the
// input/output transcript convention.
func encodeParts(parts []transcript.Part) []wirePart {
	wire := make([]wirePart, 0, len(parts)+1)
	for _, p := range parts {
		switch p.Role {
		case transcript.RoleUser:
			wire = append(wire, wirePart{Text: "input: " + p.Text})
		case transcript.RoleModel:
			wire = append(wire, wirePart{Text: "output: " + p.Text})
		default:
			wire = append(wire, wirePart{Text: p.Text})
		}
	}
	wire = append(wire, wirePart{Text: "output: "})
	return wire
}

// extractText pulls the generated text out of a decoded response,
// classifying safety blocks and unusable payloads.
func extractText(resp *generateResponse) (string, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", &GenerationError{
			Kind: KindSafetyBlocked,
			Err:  fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason),
		}
	}
	if len(resp.Candidates) == 0 {
		return "", &GenerationError{Kind: KindMalformed, Err: fmt.Errorf("response has no candidates")}
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == "SAFETY" {
		return "", &GenerationError{
			Kind: KindSafetyBlocked,
			Err:  fmt.Errorf("candidate blocked by safety filter"),
		}
	}
	if len(candidate.Content.Parts) == 0 {
		return "", &GenerationError{Kind: KindMalformed, Err: fmt.Errorf("candidate has no text parts")}
	}

	var sb strings.Builder
	for _, p := range candidate.Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

func validateDecoding(cfg DecodingConfig) error {
	// Temperature 0 is a legitimate setting; the other three have no
	// meaningful zero value, so zero means "not supplied".
	if cfg.TopK <= 0 || cfg.TopP <= 0 || cfg.MaxOutputTokens <= 0 {
		return ErrInvalidDecodingConfig
	}
	if cfg.Temperature < 0 {
		return ErrInvalidDecodingConfig
	}
	return nil
}

func validateSafety(settings []SafetySetting) error {
	covered := make(map[HarmCategory]bool, len(settings))
	for _, s := range settings {
		if s.Threshold == "" {
			return ErrIncompleteSafetyConfig
		}
		covered[s.Category] = true
	}
	for _, category := range allHarmCategories {
		if !covered[category] {
			return ErrIncompleteSafetyConfig
		}
	}
	return nil
}
