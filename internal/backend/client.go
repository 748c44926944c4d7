package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/promptreel/gateway/internal/models"
)

// Doer abstracts the HTTP client for testing.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a typed client for the generation backend's REST surface.
// The session token is bound at construction: there is no package-level
// token state, so two clients can serve two users concurrently.
type Client struct {
	baseURL string
	http    Doer
	token   string
	retry   RetryPolicy
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.http = d
		}
	}
}

// WithSession binds a bearer token for the user this client acts as.
func WithSession(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithRetryPolicy replaces the default retry behavior.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// New constructs a Client for the given backend base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		retry:   DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusUpdate is the backend's answer to a sync-status request.
type StatusUpdate struct {
	Status        models.VideoStatus `json:"status"`
	VideoURL      string             `json:"videoUrl,omitempty"`
	ThumbnailURL  string             `json:"thumbnailUrl,omitempty"`
	FailureReason string             `json:"failureReason,omitempty"`
}

// CreateVideoRequest submits a new generation prompt.
type CreateVideoRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspectRatio,omitempty"`
	Model       string `json:"model,omitempty"`
}

// UpdateUserRequest carries the mutable profile fields.
type UpdateUserRequest struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
}

// Feed fetches one page of the global feed.
func (c *Client) Feed(ctx context.Context, cursor string, limit int) (models.FeedPage, error) {
	return c.getPage(ctx, "/videos/feed", cursor, limit)
}

// Video fetches a single video by id.
func (c *Client) Video(ctx context.Context, id string) (models.Video, error) {
	var video models.Video
	if err := c.do(ctx, http.MethodGet, "/videos/"+url.PathEscape(id), nil, &video); err != nil {
		return models.Video{}, err
	}
	return video, nil
}

// CreateVideo submits a prompt and returns the pending video record.
func (c *Client) CreateVideo(ctx context.Context, req CreateVideoRequest) (models.Video, error) {
	var video models.Video
	if err := c.do(ctx, http.MethodPost, "/videos/create", req, &video); err != nil {
		return models.Video{}, err
	}
	return video, nil
}

// Like registers a like on the video.
func (c *Client) Like(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, videoAction(id, "like"), nil, nil)
}

// Dislike registers a dislike on the video.
func (c *Client) Dislike(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, videoAction(id, "dislike"), nil, nil)
}

// View records a view on the video.
func (c *Client) View(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, videoAction(id, "view"), nil, nil)
}

// Recreate re-runs the video's prompt and returns the new pending video.
func (c *Client) Recreate(ctx context.Context, id string) (models.Video, error) {
	var video models.Video
	if err := c.do(ctx, http.MethodPost, videoAction(id, "recreate"), nil, &video); err != nil {
		return models.Video{}, err
	}
	return video, nil
}

// SyncStatus asks the backend to refresh and report the video's
// generation status.
func (c *Client) SyncStatus(ctx context.Context, id string) (StatusUpdate, error) {
	var update StatusUpdate
	if err := c.do(ctx, http.MethodPost, videoAction(id, "sync-status"), nil, &update); err != nil {
		return StatusUpdate{}, err
	}
	return update, nil
}

// User fetches a creator profile.
func (c *Client) User(ctx context.Context, id string) (models.UserProfile, error) {
	var profile models.UserProfile
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, &profile); err != nil {
		return models.UserProfile{}, err
	}
	return profile, nil
}

// UserVideos fetches a page of videos created by the user.
func (c *Client) UserVideos(ctx context.Context, id, cursor string, limit int) (models.FeedPage, error) {
	return c.getPage(ctx, "/users/"+url.PathEscape(id)+"/videos", cursor, limit)
}

// LikedVideos fetches a page of videos the user has liked.
func (c *Client) LikedVideos(ctx context.Context, id, cursor string, limit int) (models.FeedPage, error) {
	return c.getPage(ctx, "/users/"+url.PathEscape(id)+"/liked", cursor, limit)
}

// UpdateUser patches the mutable profile fields.
func (c *Client) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (models.UserProfile, error) {
	var profile models.UserProfile
	if err := c.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(id), req, &profile); err != nil {
		return models.UserProfile{}, err
	}
	return profile, nil
}

func videoAction(id, action string) string {
	return "/videos/" + url.PathEscape(id) + "/" + action
}

func (c *Client) getPage(ctx context.Context, path, cursor string, limit int) (models.FeedPage, error) {
	query := url.Values{}
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var page models.FeedPage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return models.FeedPage{}, err
	}
	return page, nil
}

// do executes one logical request under the retry policy, mapping
// backend statuses onto the package error taxonomy and decoding a JSON
// response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		payload = encoded
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = c.doOnce(ctx, method, path, payload, out)
		if lastErr == nil {
			return nil
		}

		delay, retry := c.retry.shouldRetry(lastErr, attempt)
		if !retry {
			return lastErr
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}

	return statusError(resp)
}

func statusError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: retryAfter(resp.Header.Get("Retry-After"))}
	}

	message := ""
	var apiBody struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&apiBody); err == nil {
		switch {
		case apiBody.Error != "":
			message = apiBody.Error
		case apiBody.Message != "":
			message = apiBody.Message
		case apiBody.Detail != "":
			message = apiBody.Detail
		}
	}

	return &APIError{StatusCode: resp.StatusCode, Message: message}
}

func retryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
