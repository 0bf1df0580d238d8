// package openai implements a typed HTTP client for the OpenAI Files and
// Batches endpoints, the only remote surface this project talks to.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/xdjs/artist-bio-gen-batch/internal/shared"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.openai.com"

// APIError is the decoded error envelope returned by the API on non-2xx
// responses. It wraps [shared.ErrAPIRequest] for errors.Is checks.
type APIError struct {
	StatusCode int
	Message    string `json:"message"`
	Type       string `json:"type"`
	Code       string `json:"code"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("openai: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("openai: status %d", e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return shared.ErrAPIRequest
}

// Client talks to the OpenAI API with a static bearer credential.
// All calls are synchronous; there are no retries.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ClientOpts contains configuration options for creating a Client.
type ClientOpts struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
	RateLimit  float64 // requests per second; 0 disables limiting
}

// NewClient creates a new Client. The API key is required; everything else
// has defaults.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY not set", shared.ErrMissingCredentials)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &Client{
		baseURL:    opts.BaseURL,
		apiKey:     opts.APIKey,
		httpClient: opts.HTTPClient,
		limiter:    limiter,
	}, nil
}

// doRequest performs an authenticated request and decodes the JSON response
// into result. Non-2xx responses decode the error envelope into [*APIError].
func (c *Client) doRequest(ctx context.Context, method, endpoint, contentType string, body io.Reader, result any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error != nil {
		envelope.Error.StatusCode = resp.StatusCode
		return envelope.Error
	}

	return apiErr
}

// UploadFile uploads the contents of r as a batch input file with
// purpose=batch and returns the created [File]. The multipart body is
// streamed through a pipe so the input never has to fit in memory.
func (c *Client) UploadFile(ctx context.Context, filename string, r io.Reader) (*File, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := func() error {
			if err := mw.WriteField("purpose", "batch"); err != nil {
				return fmt.Errorf("failed to write purpose field: %w", err)
			}
			part, err := mw.CreateFormFile("file", filename)
			if err != nil {
				return fmt.Errorf("failed to create form file: %w", err)
			}
			if _, err := io.Copy(part, r); err != nil {
				return fmt.Errorf("failed to read upload content: %w", err)
			}
			return mw.Close()
		}()
		pw.CloseWithError(err)
	}()

	var file File
	if err := c.doRequest(ctx, http.MethodPost, "/v1/files", mw.FormDataContentType(), pr, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// CreateBatch creates a batch job over a previously uploaded input file.
func (c *Client) CreateBatch(ctx context.Context, req BatchRequest) (*Batch, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch request: %w", err)
	}

	var batch Batch
	if err := c.doRequest(ctx, http.MethodPost, "/v1/batches", "application/json", bytes.NewReader(payload), &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

// RetrieveBatch fetches the current state of a batch job.
func (c *Client) RetrieveBatch(ctx context.Context, batchID string) (*Batch, error) {
	var batch Batch
	if err := c.doRequest(ctx, http.MethodGet, "/v1/batches/"+batchID, "", nil, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

// CancelBatch requests cancellation of a batch job. The returned status is
// cancelling or cancelled; finalization happens on the remote side.
func (c *Client) CancelBatch(ctx context.Context, batchID string) (*Batch, error) {
	var batch Batch
	if err := c.doRequest(ctx, http.MethodPost, "/v1/batches/"+batchID+"/cancel", "", nil, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

// ListBatches fetches up to limit batch jobs (all of the first page when
// limit <= 0).
func (c *Client) ListBatches(ctx context.Context, limit int) (*BatchList, error) {
	endpoint := "/v1/batches"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}

	var list BatchList
	if err := c.doRequest(ctx, http.MethodGet, endpoint, "", nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// FileContent streams the raw content of a stored file into w, byte for
// byte, and returns the number of bytes written.
func (c *Client) FileContent(ctx context.Context, fileID string, w io.Writer) (int64, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/files/"+fileID+"/content", nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, decodeAPIError(resp)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to write file content: %w", err)
	}
	return n, nil
}
