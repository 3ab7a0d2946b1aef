package xu

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jszwec/csvutil"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/kyleking/xu-rsd-gen/internal/config"
	"github.com/kyleking/xu-rsd-gen/internal/errors"
	"github.com/kyleking/xu-rsd-gen/internal/logging"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultRateBurst = 5
	defaultUserAgent = "xu-rsd-gen/1.0"

	maxErrorBody = 512
)

// Client reads extraction metadata from an Xtract Universal server
type Client interface {
	// ListExtractions returns the extractions defined on the server. When
	// destinationType is one of DestinationTypes only extractions writing
	// to that destination are returned, otherwise all of them.
	ListExtractions(ctx context.Context, destinationType string) ([]Extraction, error)

	// ListColumns returns the result columns of an extraction in server order
	ListColumns(ctx context.Context, extraction string) ([]Column, error)

	// ListParameters returns the custom run parameters of an extraction
	ListParameters(ctx context.Context, extraction string) ([]Parameter, error)
}

// ClientConfig configures the HTTP client
type ClientConfig struct {
	BaseURL string

	// Timeout for individual requests (default: 30s)
	Timeout time.Duration

	// RateLimit in requests per second, zero disables limiting
	RateLimit float64
	RateBurst int

	UserAgent string

	// Transport allows injecting a custom round tripper in tests
	Transport http.RoundTripper

	Logger *logging.Logger
}

// HTTPClient implements Client over the server's REST endpoints. Requests
// are never retried.
type HTTPClient struct {
	config      ClientConfig
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *logging.Logger
}

// StatusError is the cause attached to metadata errors for non-2xx responses
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}

	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// NewClient creates a metadata client with the given configuration
func NewClient(cfg ClientConfig) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &HTTPClient{
		config: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		rateLimiter: rate.NewLimiter(limit, cfg.RateBurst),
		logger:      logger,
	}
}

// NewClientFromConfig creates a metadata client from the service section
func NewClientFromConfig(cfg *config.Config, logger *logging.Logger) *HTTPClient {
	return NewClient(ClientConfig{
		BaseURL:   cfg.Service.BaseURL,
		Timeout:   cfg.ServiceTimeout(),
		RateLimit: cfg.Service.RateLimit,
		UserAgent: cfg.Service.UserAgent,
		Logger:    logger,
	})
}

// ListExtractions fetches the extraction list, decoding either a JSON or a
// CSV body
func (c *HTTPClient) ListExtractions(ctx context.Context, destinationType string) ([]Extraction, error) {
	query := url.Values{}
	if IsDestinationType(destinationType) {
		query.Set("destinationType", destinationType)
	}

	resp, err := c.get(ctx, "", query)
	if err != nil {
		return nil, err
	}

	if resp.isCSV() {
		extractions, err := decodeExtractionsCSV(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeMetadata, "failed to decode extraction list")
		}

		return extractions, nil
	}

	var body extractionsResponse
	if err := resp.JSON(&body); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeMetadata, "failed to decode extraction list")
	}

	return body.Extractions, nil
}

// ListColumns fetches the result columns of an extraction
func (c *HTTPClient) ListColumns(ctx context.Context, extraction string) ([]Column, error) {
	resp, err := c.get(ctx, extractionPath(extraction, "result-columns"), nil)
	if err != nil {
		return nil, err
	}

	var body columnsResponse
	if err := resp.JSON(&body); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeMetadata, "failed to decode columns of %s", extraction)
	}

	return body.Columns, nil
}

// ListParameters fetches the custom run parameters of an extraction
func (c *HTTPClient) ListParameters(ctx context.Context, extraction string) ([]Parameter, error) {
	resp, err := c.get(ctx, extractionPath(extraction, "parameters"), nil)
	if err != nil {
		return nil, err
	}

	var body parametersResponse
	if err := resp.JSON(&body); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeMetadata, "failed to decode parameters of %s", extraction)
	}

	return body.Custom, nil
}

func extractionPath(extraction, resource string) string {
	return "config/extractions/" + url.PathEscape(extraction) + "/" + resource
}

// response is a fully read, charset-decoded HTTP response
type response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// JSON unmarshals the response body into target
func (r *response) JSON(target any) error {
	return json.Unmarshal(r.Body, target)
}

func (r *response) isCSV() bool {
	mediaType, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		return false
	}

	return mediaType == "text/csv"
}

func (c *HTTPClient) get(ctx context.Context, path string, query url.Values) (*response, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeNetwork, "rate limiter")
	}

	fullURL := strings.TrimSuffix(c.config.BaseURL, "/") + "/" + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	c.logger.WithField("url", fullURL).Debug("requesting metadata")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeMetadata, "invalid metadata url %s", fullURL)
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json, text/csv")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeNetwork, "request to %s failed", fullURL).
			WithSuggestion("Check that Xtract Universal is running and XU_RSD_BASE_URL points to it")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeNetwork, "failed to read response from %s", fullURL)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Wrapf(&StatusError{StatusCode: resp.StatusCode, Body: truncate(raw)},
			errors.ErrTypeMetadata, "metadata request to %s failed", fullURL)
	}

	contentType := resp.Header.Get("Content-Type")

	body, err := decodeBody(raw, contentType)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeMetadata, "unsupported response encoding from %s", fullURL)
	}

	return &response{
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        body,
	}, nil
}

// decodeBody converts raw to UTF-8. A charset named in the Content-Type wins;
// without one, valid UTF-8 is kept as is and anything else is sniffed over
// the whole body.
func decodeBody(raw []byte, contentType string) ([]byte, error) {
	if len(raw) == 0 {
		return raw, nil
	}

	var label string
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		label = params["charset"]
	}

	if label == "" {
		if utf8.Valid(raw) {
			return raw, nil
		}

		enc, _, _ := charset.DetermineEncoding(raw, contentType)

		return enc.NewDecoder().Bytes(raw)
	}

	enc, name := charset.Lookup(label)
	if enc == nil {
		return nil, fmt.Errorf("unknown charset %q", label)
	}

	if name == "utf-8" {
		return raw, nil
	}

	return enc.NewDecoder().Bytes(raw)
}

func decodeExtractionsCSV(body []byte) ([]Extraction, error) {
	var extractions []Extraction

	if len(bytes.TrimSpace(body)) == 0 {
		return extractions, nil
	}

	dec, err := csvutil.NewDecoder(csv.NewReader(bytes.NewReader(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV decoder: %w", err)
	}

	if err := dec.Decode(&extractions); err != nil {
		return nil, fmt.Errorf("failed to decode CSV data: %w", err)
	}

	return extractions, nil
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}

	return s
}
