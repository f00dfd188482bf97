// Package api talks to the remote task/scheduling service.
//
// Every call takes the bearer credential explicitly; the client holds no
// session state of its own.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"weekcal/internal/apperr"
	appLog "weekcal/internal/log"
	"weekcal/internal/mapper"
	"weekcal/internal/model"
)

const (
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 4 << 10
)

// StatusError is a non-2xx answer from the service.
type StatusError struct {
	Method string
	Path   string
	Status int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.Status, http.StatusText(e.Status), e.Detail)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

// Client is safe for concurrent use.
type Client struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a client for baseURL, allowing rps requests per second
// with a burst of twice that.
func NewClient(baseURL string, rps float64) *Client {
	if rps <= 0 {
		rps = 5
	}
	burst := int(rps * 2)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// WithHTTPClient swaps the transport, mainly for tests.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

type userCreate struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type shareLinkResponse struct {
	ShareURL string `json:"share_url"`
}

// Register creates an account. 400 means the account exists and is not an
// error.
func (c *Client) Register(ctx context.Context, username, email, password string) error {
	err := c.doJSON(ctx, http.MethodPost, "/register", "", userCreate{username, email, password}, nil)
	if StatusCode(err) == http.StatusBadRequest {
		appLog.Debug("register: account already exists", "username", username)
		return nil
	}
	return err
}

// Login exchanges credentials for a bearer token (form-encoded).
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := c.newRequest(ctx, http.MethodPost, "/token", "", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out tokenResponse
	if err := c.do(req, &out); err != nil {
		if code := StatusCode(err); code == http.StatusUnauthorized || code == http.StatusBadRequest {
			return "", apperr.Auth("incorrect username or password", err)
		}
		return "", err
	}
	if out.AccessToken == "" {
		return "", apperr.Auth("login returned no token", nil)
	}
	return out.AccessToken, nil
}

// Schedule returns every block of the caller.
func (c *Client) Schedule(ctx context.Context, token string) ([]model.Block, error) {
	var blocks []model.Block
	if err := c.doJSON(ctx, http.MethodGet, "/schedule/", token, nil, &blocks); err != nil {
		return nil, err
	}
	if blocks == nil {
		blocks = []model.Block{}
	}
	return blocks, nil
}

// CreateTask submits a task. The server answers with a description of the
// created task that the calendar does not use; state comes from Schedule.
func (c *Client) CreateTask(ctx context.Context, token string, in model.TaskInput) error {
	return c.doJSON(ctx, http.MethodPost, "/tasks/", token, in, nil)
}

// DeleteBlock removes one block.
func (c *Client) DeleteBlock(ctx context.Context, token string, blockID int64) error {
	return c.doJSON(ctx, http.MethodDelete, "/tasks/block/"+strconv.FormatInt(blockID, 10), token, nil, nil)
}

// ShareLink asks for a share URL of the caller's calendar.
func (c *Client) ShareLink(ctx context.Context, token string) (string, error) {
	var out shareLinkResponse
	if err := c.doJSON(ctx, http.MethodPost, "/share/link", token, nil, &out); err != nil {
		return "", err
	}
	return out.ShareURL, nil
}

// SharedView reads an anonymized shared schedule for [start, end).
func (c *Client) SharedView(ctx context.Context, shareToken string, start, end time.Time) (model.SharedSchedule, error) {
	q := url.Values{}
	q.Set("start", mapper.FormatInstant(start))
	q.Set("end", mapper.FormatInstant(end))
	path := "/share/view/" + url.PathEscape(shareToken) + "?" + q.Encode()

	var out model.SharedSchedule
	if err := c.doJSON(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return model.SharedSchedule{}, err
	}
	return out, nil
}

// TwinTask creates a task shared between the caller and the owner of
// shareToken.
func (c *Client) TwinTask(ctx context.Context, token, shareToken string, in model.TaskInput) error {
	return c.doJSON(ctx, http.MethodPost, "/share/"+url.PathEscape(shareToken)+"/twin-task", token, in, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: encode: %w", method, path, err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, token, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path, token string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return err
	}

	path := redactPath(req.URL.Path)
	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		appLog.Error("api request failed", err, "method", req.Method, "path", path)
		return fmt.Errorf("%s %s: %w", req.Method, path, err)
	}
	defer resp.Body.Close()

	appLog.Debug("api request", "method", req.Method, "path", path, "status", resp.StatusCode, "elapsed", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method: req.Method,
			Path:   path,
			Status: resp.StatusCode,
			Detail: errorDetail(raw),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", req.Method, path, err)
	}
	return nil
}

// errorDetail pulls {"detail": "..."} out of an error body, falling back to
// the trimmed raw text.
func errorDetail(raw []byte) string {
	var body struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Detail != nil {
		if s, ok := body.Detail.(string); ok {
			return s
		}
		b, _ := json.Marshal(body.Detail)
		return string(b)
	}
	return strings.TrimSpace(string(raw))
}

// redactPath hides share tokens in logged paths.
func redactPath(p string) string {
	for _, prefix := range []string{"/share/view/", "/share/"} {
		if rest, ok := strings.CutPrefix(p, prefix); ok && rest != "link" {
			_, tail, found := strings.Cut(rest, "/")
			if found {
				return prefix + "(redacted)/" + tail
			}
			return prefix + "(redacted)"
		}
	}
	return p
}
