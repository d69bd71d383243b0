package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"reelay/internal/config"
	"reelay/internal/services"
)

const defaultAPIBase = "https://api.cloudinary.com/v1_1"

// UploadOptions control how a video is stored.
type UploadOptions struct {
	// PublicID overrides the derived identifier (defaults to the file stem).
	PublicID string
}

// UploadResult is the subset of the upload response reelay consumes.
type UploadResult struct {
	SecureURL string  `json:"secure_url"`
	PublicID  string  `json:"public_id"`
	Bytes     int64   `json:"bytes"`
	Duration  float64 `json:"duration"`
}

// Client talks to the Cloudinary upload API for one cloud.
type Client struct {
	cloudName  string
	apiKey     string
	apiSecret  string
	folder     string
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API endpoint (used in tests).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base = strings.TrimRight(strings.TrimSpace(base), "/"); base != "" {
			c.baseURL = base
		}
	}
}

// WithClock overrides the timestamp source (used in tests).
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Cloudinary client from configuration.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "cloudinary", "new", "config is required", nil)
	}
	if cfg.Cloudinary.CloudName == "" || cfg.Cloudinary.APIKey == "" || cfg.Cloudinary.APISecret == "" {
		return nil, services.Wrap(services.ErrConfiguration, "cloudinary", "new",
			"cloudinary.cloud_name, api_key, and api_secret must be set", nil)
	}
	client := &Client{
		cloudName:  cfg.Cloudinary.CloudName,
		apiKey:     cfg.Cloudinary.APIKey,
		apiSecret:  cfg.Cloudinary.APISecret,
		folder:     cfg.Cloudinary.Folder,
		baseURL:    defaultAPIBase,
		httpClient: &http.Client{Timeout: 10 * time.Minute},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Upload stores a local video and returns its hosted location. The video is
// transcoded to mp4 and overwrites any previous asset with the same public
// ID, matching how re-uploads of a corrected cut are expected to behave.
func (c *Client) Upload(ctx context.Context, localPath string, opts UploadOptions) (UploadResult, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return UploadResult{}, services.Wrap(services.ErrValidation, "cloudinary", "upload", "open video", err)
	}
	defer file.Close()

	publicID := strings.TrimSpace(opts.PublicID)
	if publicID == "" {
		base := filepath.Base(localPath)
		publicID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if c.folder != "" {
		publicID = c.folder + "/" + publicID
	}

	params := map[string]string{
		"format":    "mp4",
		"overwrite": "true",
		"public_id": publicID,
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
	}

	body, contentType, err := buildMultipart(file, params, c.apiKey, c.sign(params))
	if err != nil {
		return UploadResult{}, services.Wrap(services.ErrTransient, "cloudinary", "upload", "build request body", err)
	}

	endpoint := fmt.Sprintf("%s/%s/video/upload", c.baseURL, c.cloudName)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return UploadResult{}, services.Wrap(services.ErrTransient, "cloudinary", "upload", "build request", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	requestStart := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	latency := time.Since(requestStart)
	if err != nil {
		return UploadResult{}, services.Wrap(services.ErrTransient, "cloudinary", "upload",
			fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return UploadResult{}, services.Wrap(services.ErrTransient, "cloudinary", "upload", "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return UploadResult{}, classifyStatus("upload", resp.StatusCode, payload, latency)
	}

	var result UploadResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return UploadResult{}, services.Wrap(services.ErrTransient, "cloudinary", "upload", "decode response", err)
	}
	if result.SecureURL == "" {
		return UploadResult{}, services.Wrap(services.ErrTransient, "cloudinary", "upload", "no secure_url in response", nil)
	}
	return result, nil
}

// Destroy removes a previously uploaded video. Missing assets are not an
// error; cleanup may run after a manual delete.
func (c *Client) Destroy(ctx context.Context, publicID string) error {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return services.Wrap(services.ErrValidation, "cloudinary", "destroy", "public id must not be empty", nil)
	}

	params := map[string]string{
		"public_id": publicID,
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
	}

	form := make([]string, 0, len(params)+2)
	for key, value := range params {
		form = append(form, key+"="+value)
	}
	form = append(form, "api_key="+c.apiKey, "signature="+c.sign(params))

	endpoint := fmt.Sprintf("%s/%s/video/destroy", c.baseURL, c.cloudName)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(strings.Join(form, "&")))
	if err != nil {
		return services.Wrap(services.ErrTransient, "cloudinary", "destroy", "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	latency := time.Since(requestStart)
	if err != nil {
		return services.Wrap(services.ErrTransient, "cloudinary", "destroy",
			fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return services.Wrap(services.ErrTransient, "cloudinary", "destroy", "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return classifyStatus("destroy", resp.StatusCode, payload, latency)
	}

	var result struct {
		Result string `json:"result"`
	}
	if err := json.Unmarshal(payload, &result); err != nil {
		return services.Wrap(services.ErrTransient, "cloudinary", "destroy", "decode response", err)
	}
	if result.Result != "ok" && result.Result != "not found" {
		return services.Wrap(services.ErrTransient, "cloudinary", "destroy",
			fmt.Sprintf("unexpected result %q", result.Result), nil)
	}
	return nil
}

// sign produces the request signature: SHA-1 over the sorted parameter
// string with the API secret appended.
func (c *Client) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+params[key])
	}
	digest := sha1.Sum([]byte(strings.Join(pairs, "&") + c.apiSecret))
	return hex.EncodeToString(digest[:])
}

func buildMultipart(file *os.File, params map[string]string, apiKey, signature string) (io.Reader, string, error) {
	pipeReader, pipeWriter := io.Pipe()
	writer := multipart.NewWriter(pipeWriter)

	go func() {
		var err error
		defer func() {
			if closeErr := writer.Close(); err == nil {
				err = closeErr
			}
			pipeWriter.CloseWithError(err)
		}()

		for key, value := range params {
			if err = writer.WriteField(key, value); err != nil {
				return
			}
		}
		if err = writer.WriteField("api_key", apiKey); err != nil {
			return
		}
		if err = writer.WriteField("signature", signature); err != nil {
			return
		}

		var part io.Writer
		part, err = writer.CreateFormFile("file", filepath.Base(file.Name()))
		if err != nil {
			return
		}
		_, err = io.Copy(part, file)
	}()

	return pipeReader, writer.FormDataContentType(), nil
}

// PublicIDFromURL extracts the public ID from a Cloudinary delivery URL,
// e.g. .../video/upload/v1712345/reels/clip.mp4 yields "reels/clip". The
// second return is false when the URL does not look like a Cloudinary asset.
func PublicIDFromURL(rawURL string) (string, bool) {
	parts := strings.Split(rawURL, "/upload/")
	if len(parts) != 2 || parts[1] == "" {
		return "", false
	}
	tail := parts[1]
	segments := strings.Split(tail, "/")
	// Drop a leading version segment like "v1712345".
	if len(segments) > 1 && len(segments[0]) > 1 && segments[0][0] == 'v' {
		if _, err := strconv.Atoi(segments[0][1:]); err == nil {
			segments = segments[1:]
		}
	}
	publicID := strings.Join(segments, "/")
	if ext := filepath.Ext(publicID); ext != "" {
		publicID = strings.TrimSuffix(publicID, ext)
	}
	if publicID == "" {
		return "", false
	}
	return publicID, true
}

func classifyStatus(operation string, httpStatus int, body []byte, latency time.Duration) error {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	detail := fmt.Sprintf("api returned %d (latency=%v)", httpStatus, latency)
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		detail = fmt.Sprintf("%s: %s", detail, payload.Error.Message)
	}

	marker := services.ErrTransient
	switch {
	case httpStatus == http.StatusUnauthorized || httpStatus == http.StatusForbidden:
		marker = services.ErrAuth
	case httpStatus == http.StatusTooManyRequests:
		marker = services.ErrRateLimited
	case httpStatus >= http.StatusInternalServerError:
		marker = services.ErrTransient
	case httpStatus >= http.StatusBadRequest:
		marker = services.ErrValidation
	}
	return services.Wrap(marker, "cloudinary", operation, detail, nil)
}
