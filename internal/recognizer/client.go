// Package recognizer wraps the third-party species identification API.
// The wire shape follows the Pl@ntNet identify endpoint: a multipart
// image upload answered with a ranked list of species candidates.
package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/plant-scanner/internal/config"
	"github.com/plant-scanner/internal/retry"
	"github.com/plant-scanner/internal/types"
)

// Candidate is one ranked species guess
type Candidate struct {
	Species     string       `json:"species"`
	Score       float64      `json:"score"`
	Rarity      types.Rarity `json:"rarity"`
	CommonNames []string     `json:"commonNames,omitempty"`
}

// Identification is the result of one recognition call
type Identification struct {
	BestMatch  string      `json:"bestMatch"`
	Candidates []Candidate `json:"candidates"`
}

// Client calls the species recognition API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retryCfg   *retry.Config
}

// NewClient creates a recognition API client. The configured timeout
// bounds every call; recognition is the only externally latent
// dependency the server has.
func NewClient(cfg *config.RecognizerConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retryCfg:   retry.DefaultConfig(),
	}
}

// wire types for the upstream response
type apiResponse struct {
	BestMatch string      `json:"bestMatch"`
	Results   []apiResult `json:"results"`
}

type apiResult struct {
	Score   float64 `json:"score"`
	Rarity  string  `json:"rarity,omitempty"`
	Species struct {
		ScientificNameWithoutAuthor string   `json:"scientificNameWithoutAuthor"`
		CommonNames                 []string `json:"commonNames"`
	} `json:"species"`
}

// Identify submits an image and returns the ranked candidate species.
// A response with no candidates maps to NO_MATCH; network failures,
// timeouts and upstream 5xx map to UPSTREAM_UNAVAILABLE after bounded
// retries. The image bytes are buffered up front so every retry resends
// the same payload.
func (c *Client) Identify(ctx context.Context, image io.Reader, filename string) (*Identification, error) {
	payload, contentType, err := encodeMultipart(image, filename)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/identify/all?nb-results=10&lang=en&api-key=%s",
		c.baseURL, url.QueryEscape(c.apiKey))

	var identification *Identification
	err = retry.WithBackoff(ctx, c.retryCfg, func(ctx context.Context, attempt int) (bool, error) {
		result, retryable, err := c.doIdentify(ctx, endpoint, payload, contentType)
		if err != nil {
			return retryable, err
		}
		identification = result
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	return identification, nil
}

func encodeMultipart(image io.Reader, filename string) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("images", filename)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create multipart body: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}

func (c *Client) doIdentify(ctx context.Context, endpoint string, payload []byte, contentType string) (*Identification, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("failed to build recognition request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, &types.ServiceError{
			Code:    types.CodeUpstreamUnavailable,
			Message: "recognition service unreachable",
		}
	}
	defer resp.Body.Close() // nolint:errcheck // response body cleanup

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, &types.ServiceError{
			Code:    types.CodeNoMatch,
			Message: "no species matched the image",
		}
	case resp.StatusCode >= 500:
		return nil, true, &types.ServiceError{
			Code:    types.CodeUpstreamUnavailable,
			Message: fmt.Sprintf("recognition service returned status %d", resp.StatusCode),
		}
	case resp.StatusCode != http.StatusOK:
		return nil, false, &types.ServiceError{
			Code:    types.CodeInvalidInput,
			Message: fmt.Sprintf("recognition request rejected with status %d", resp.StatusCode),
		}
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, false, fmt.Errorf("failed to decode recognition response: %w", err)
	}

	if len(apiResp.Results) == 0 {
		return nil, false, &types.ServiceError{
			Code:    types.CodeNoMatch,
			Message: "no species matched the image",
		}
	}

	identification := &Identification{
		BestMatch:  apiResp.BestMatch,
		Candidates: make([]Candidate, 0, len(apiResp.Results)),
	}
	for _, result := range apiResp.Results {
		rarity := types.Rarity(result.Rarity)
		if rarity == "" {
			rarity = types.RarityCommon
		}
		identification.Candidates = append(identification.Candidates, Candidate{
			Species:     result.Species.ScientificNameWithoutAuthor,
			Score:       result.Score,
			Rarity:      rarity,
			CommonNames: result.Species.CommonNames,
		})
	}
	if identification.BestMatch == "" {
		identification.BestMatch = identification.Candidates[0].Species
	}

	return identification, false, nil
}
