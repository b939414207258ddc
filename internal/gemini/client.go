// Package gemini implements the text-generation collaborator over the
// Gemini generateContent REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"arkiva/internal/domain"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client calls the Gemini generateContent endpoint to summarize documents.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	httpc   *http.Client
}

// New creates a Client for the given API key and model.
func New(apiKey, model string) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpc:   &http.Client{Timeout: 60 * time.Second},
	}
}

// WithBaseURL overrides the API endpoint. Test hook.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

var _ domain.Summarizer = (*Client)(nil)

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Summarize sends the document bytes and metadata to Gemini and returns the
// generated summary. The prompt asks for a detailed Albanian summary, matching
// the audience of the archive.
func (c *Client) Summarize(ctx context.Context, in domain.SummaryInput) (string, error) {
	if c.apiKey == "" {
		return "", domain.ErrValidation("GEMINI_API_KEY is not configured")
	}

	prompt := fmt.Sprintf(
		"Gjenero një përmbledhje të detajuar në shqip për dokumentin. "+
			"Duhet të jetë e gjatë dhe informative (disa paragrafë), me fjali të plota dhe pa u ndërprerë. "+
			"Nëse dokumenti ka kapituj/tema, përfshiji si nënndarje me tituj të shkurtër. "+
			"Përfshi pikat kryesore, definicione të rëndësishme dhe çfarë mëson lexuesi. "+
			"Mos shpik fakte; përdor vetëm informacionin që gjendet në dokument ose metadatat. "+
			"Titulli: %s\nKategoria: %s\nPërshkrimi: %s\nTags: %s\n",
		in.Title, in.Category, in.Description, in.Tags)

	payload := generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{Text: prompt},
				{InlineData: &inlineData{
					MimeType: in.MimeType,
					Data:     base64.StdEncoding.EncodeToString(in.Data),
				}},
			},
		}},
		GenerationConfig: generationConfig{Temperature: 0.2, MaxOutputTokens: 2048},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode gemini request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.baseURL, c.model, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer res.Body.Close() //nolint:errcheck

	if res.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return "", fmt.Errorf("gemini request failed: HTTP %d %s", res.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out generateResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var texts []string
	for _, p := range out.Candidates[0].Content.Parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	if len(texts) == 0 {
		return "", fmt.Errorf("gemini returned no text")
	}
	return strings.TrimSpace(strings.Join(texts, "\n")), nil
}
