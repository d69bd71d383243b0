package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reelay/internal/config"
	"reelay/internal/services"
)

// Container processing status codes reported by the Graph API.
const (
	StatusFinished   = "FINISHED"
	StatusInProgress = "IN_PROGRESS"
	StatusError      = "ERROR"
	StatusExpired    = "EXPIRED"
	StatusPublished  = "PUBLISHED"
)

// The Graph API sometimes answers a successful reel publish with a 400
// carrying this subcode and the message "Fatal". The post goes live anyway.
const fatalPublishSubcode = 2207032

// Phase identifies how far a publish attempt progressed.
type Phase string

const (
	PhaseCreate   Phase = "create"
	PhaseProcess  Phase = "process"
	PhasePublish  Phase = "publish"
	PhaseComplete Phase = "complete"
)

// ContainerRequest carries the inputs for a media container.
type ContainerRequest struct {
	VideoURL   string
	Caption    string
	LocationID string
	CoverURL   string
}

// ContainerStatus is the processing state of a media container.
type ContainerStatus struct {
	Code   string `json:"status_code"`
	Detail string `json:"status"`
}

// PublishResult reports the outcome of a publish attempt. Phase is always
// set, including on failure, so callers can record where the attempt stopped.
type PublishResult struct {
	ContainerID string
	MediaID     string
	Phase       Phase
}

// Client provides access to the Instagram Graph API for reel publishing.
type Client struct {
	accessToken       string
	accountID         string
	baseURL           string
	httpClient        *http.Client
	pollInterval      time.Duration
	processingTimeout time.Duration
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

// WithPolling overrides the processing poll cadence and timeout.
func WithPolling(interval, timeout time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
		if timeout > 0 {
			c.processingTimeout = timeout
		}
	}
}

// New creates a Graph API client from configuration.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "instagram", "new", "config is required", nil)
	}
	token := strings.TrimSpace(cfg.Instagram.AccessToken)
	account := strings.TrimSpace(cfg.Instagram.BusinessAccountID)
	if token == "" || account == "" {
		return nil, services.Wrap(services.ErrConfiguration, "instagram", "new",
			"instagram.access_token and instagram.business_account_id must be set", nil)
	}
	client := &Client{
		accessToken:       token,
		accountID:         account,
		baseURL:           strings.TrimRight(cfg.Instagram.BaseURL, "/"),
		httpClient:        &http.Client{Timeout: 30 * time.Second},
		pollInterval:      cfg.PollInterval(),
		processingTimeout: cfg.ProcessingTimeout(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Publish runs the full create, wait, publish sequence for one reel. Phase 3
// is only attempted after the container reports FINISHED, and never twice.
func (c *Client) Publish(ctx context.Context, req ContainerRequest) (PublishResult, error) {
	result := PublishResult{Phase: PhaseCreate}

	containerID, err := c.CreateContainer(ctx, req)
	if err != nil {
		return result, err
	}
	result.ContainerID = containerID

	result.Phase = PhaseProcess
	if err := c.WaitForProcessing(ctx, containerID); err != nil {
		return result, err
	}

	result.Phase = PhasePublish
	mediaID, err := c.PublishContainer(ctx, containerID)
	if err != nil {
		return result, err
	}
	result.MediaID = mediaID
	result.Phase = PhaseComplete
	return result, nil
}

// CreateContainer creates a REELS media container from a hosted video.
func (c *Client) CreateContainer(ctx context.Context, req ContainerRequest) (string, error) {
	videoURL := strings.TrimSpace(req.VideoURL)
	if videoURL == "" {
		return "", services.Wrap(services.ErrValidation, "instagram", "create container", "video url must not be empty", nil)
	}

	form := url.Values{}
	form.Set("media_type", "REELS")
	form.Set("video_url", videoURL)
	form.Set("caption", req.Caption)
	form.Set("access_token", c.accessToken)
	if cover := strings.TrimSpace(req.CoverURL); cover != "" {
		form.Set("cover_url", cover)
	}
	if location := strings.TrimSpace(req.LocationID); location != "" {
		form.Set("location_id", location)
	}

	endpoint := fmt.Sprintf("%s/%s/media", c.baseURL, c.accountID)
	var payload struct {
		ID string `json:"id"`
	}
	if err := c.postForm(ctx, "create container", endpoint, form, &payload); err != nil {
		return "", err
	}
	if payload.ID == "" {
		return "", services.Wrap(services.ErrTransient, "instagram", "create container", "no container id in response", nil)
	}
	return payload.ID, nil
}

// Status fetches the processing state of a container.
func (c *Client) Status(ctx context.Context, containerID string) (ContainerStatus, error) {
	endpoint, err := url.Parse(fmt.Sprintf("%s/%s", c.baseURL, containerID))
	if err != nil {
		return ContainerStatus{}, services.Wrap(services.ErrValidation, "instagram", "container status", "parse url", err)
	}
	params := url.Values{}
	params.Set("fields", "status_code,status")
	params.Set("access_token", c.accessToken)
	endpoint.RawQuery = params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return ContainerStatus{}, services.Wrap(services.ErrTransient, "instagram", "container status", "build request", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	latency := time.Since(requestStart)
	if err != nil {
		return ContainerStatus{}, services.Wrap(services.ErrTransient, "instagram", "container status",
			fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ContainerStatus{}, services.Wrap(services.ErrTransient, "instagram", "container status", "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return ContainerStatus{}, c.classifyAPIError("container status", resp.StatusCode, body, latency)
	}

	var status ContainerStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return ContainerStatus{}, services.Wrap(services.ErrTransient, "instagram", "container status", "decode response", err)
	}
	return status, nil
}

// WaitForProcessing polls the container until it reports FINISHED or the
// configured timeout elapses. The loop is strictly bounded; ERROR and
// EXPIRED are terminal failures.
func (c *Client) WaitForProcessing(ctx context.Context, containerID string) error {
	deadline := time.Now().Add(c.processingTimeout)
	for {
		status, err := c.Status(ctx, containerID)
		if err != nil {
			return err
		}
		switch status.Code {
		case StatusFinished:
			return nil
		case StatusError:
			return services.Wrap(services.ErrValidation, "instagram", "wait processing",
				fmt.Sprintf("processing failed: %s", status.Detail), nil)
		case StatusExpired:
			return services.Wrap(services.ErrValidation, "instagram", "wait processing", "container expired", nil)
		}

		if time.Now().Add(c.pollInterval).After(deadline) {
			return services.Wrap(services.ErrTimeout, "instagram", "wait processing",
				fmt.Sprintf("container %s not ready after %v", containerID, c.processingTimeout), nil)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

// PublishContainer publishes a ready container and returns the media ID.
func (c *Client) PublishContainer(ctx context.Context, containerID string) (string, error) {
	form := url.Values{}
	form.Set("creation_id", containerID)
	form.Set("access_token", c.accessToken)

	endpoint := fmt.Sprintf("%s/%s/media_publish", c.baseURL, c.accountID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "instagram", "publish container", "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	latency := time.Since(requestStart)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "instagram", "publish container",
			fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "instagram", "publish container", "read response", err)
	}

	if resp.StatusCode == http.StatusOK {
		var payload struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return "", services.Wrap(services.ErrTransient, "instagram", "publish container", "decode response", err)
		}
		if payload.ID == "" {
			return "", services.Wrap(services.ErrTransient, "instagram", "publish container", "no media id in response", nil)
		}
		return payload.ID, nil
	}

	if apiErr, ok := parseAPIError(body); ok &&
		resp.StatusCode == http.StatusBadRequest &&
		apiErr.ErrorSubcode == fatalPublishSubcode &&
		apiErr.Message == "Fatal" {
		// The reel publishes despite this response; report the container id
		// in place of the media id.
		return containerID, nil
	}

	return "", c.classifyAPIError("publish container", resp.StatusCode, body, latency)
}

func (c *Client) postForm(ctx context.Context, operation, endpoint string, form url.Values, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return services.Wrap(services.ErrTransient, "instagram", operation, "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	latency := time.Since(requestStart)
	if err != nil {
		return services.Wrap(services.ErrTransient, "instagram", operation,
			fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return services.Wrap(services.ErrTransient, "instagram", operation, "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return c.classifyAPIError(operation, resp.StatusCode, body, latency)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return services.Wrap(services.ErrTransient, "instagram", operation, "decode response", err)
	}
	return nil
}

type apiError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode"`
}

func parseAPIError(body []byte) (apiError, bool) {
	var payload struct {
		Error apiError `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return apiError{}, false
	}
	if payload.Error.Message == "" && payload.Error.Code == 0 {
		return apiError{}, false
	}
	return payload.Error, true
}

// Graph API codes that signal application or account throttling.
var rateLimitCodes = map[int]struct{}{
	4:   {},
	17:  {},
	32:  {},
	613: {},
}

func (c *Client) classifyAPIError(operation string, httpStatus int, body []byte, latency time.Duration) error {
	detail := fmt.Sprintf("api returned %d (latency=%v)", httpStatus, latency)
	apiErr, ok := parseAPIError(body)
	if ok {
		detail = fmt.Sprintf("%s: %s (code=%d subcode=%d)", detail, apiErr.Message, apiErr.Code, apiErr.ErrorSubcode)
	}

	marker := services.ErrTransient
	switch {
	case httpStatus == http.StatusTooManyRequests:
		marker = services.ErrRateLimited
	case httpStatus >= http.StatusInternalServerError:
		marker = services.ErrTransient
	case ok && isRateLimitCode(apiErr.Code):
		marker = services.ErrRateLimited
	case ok && (apiErr.Type == "OAuthException" || apiErr.Code == 190):
		marker = services.ErrAuth
	case httpStatus >= http.StatusBadRequest:
		marker = services.ErrValidation
	}

	return services.Wrap(marker, "instagram", operation, detail, nil)
}

func isRateLimitCode(code int) bool {
	_, ok := rateLimitCodes[code]
	return ok
}
