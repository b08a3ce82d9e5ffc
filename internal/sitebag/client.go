package sitebag

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

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 8 << 20

type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	limiter  *rate.Limiter
	logger   *log.Logger
}

type Option func(*Client)

// WithRateLimit caps outgoing requests per second. Zero or less disables it.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClient(baseURL, username, password string, httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		http:     httpClient,
		limiter:  rate.NewLimiter(rate.Inf, 1),
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Username() string { return c.username }

func (c *Client) ListEntries(ctx context.Context, params url.Values, size, num int) ([]Entry, error) {
	if num < 1 {
		num = 1
	}
	if size < 1 {
		size = 21
	}
	q := make(url.Values, len(params)+2)
	for k, vs := range params {
		q[k] = append([]string(nil), vs...)
	}
	q.Set("size", strconv.Itoa(size))
	q.Set("num", strconv.Itoa(num))

	var entries []Entry
	if _, err := c.do(ctx, "list entries", http.MethodGet, c.apiPath("/entries/json")+"?"+q.Encode(), nil, "", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) GetEntry(ctx context.Context, id string, meta bool) (Entry, error) {
	if err := requireID(id); err != nil {
		return Entry{}, err
	}
	path := c.entryPath(id, "")
	if meta {
		path += "?meta"
	}
	var entry Entry
	if _, err := c.do(ctx, "get entry", http.MethodGet, path, nil, "", &entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (c *Client) EntryTags(ctx context.Context, id string) ([]string, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	var tags []string
	if _, err := c.do(ctx, "get entry tags", http.MethodGet, c.entryPath(id, "/tags"), nil, "", &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func (c *Client) Tags(ctx context.Context) (TagCloud, error) {
	var cloud TagCloud
	if _, err := c.do(ctx, "list tags", http.MethodGet, c.apiPath("/tags"), nil, "", &cloud); err != nil {
		return TagCloud{}, err
	}
	return cloud, nil
}

func (c *Client) SetTags(ctx context.Context, id string, tags []string) (string, error) {
	if err := requireID(id); err != nil {
		return "", err
	}
	return c.postJSON(ctx, "tag entry", c.entryPath(id, "/tags"), map[string][]string{"tags": nonNil(tags)}, nil)
}

func (c *Client) Untag(ctx context.Context, id string, tags []string) (string, error) {
	if err := requireID(id); err != nil {
		return "", err
	}
	return c.postJSON(ctx, "untag entry", c.entryPath(id, "/untag"), map[string][]string{"tags": nonNil(tags)}, nil)
}

func (c *Client) DeleteEntry(ctx context.Context, id string) (string, error) {
	if err := requireID(id); err != nil {
		return "", err
	}
	return c.postJSON(ctx, "delete entry", c.entryPath(id, ""), map[string]bool{"delete": true}, nil)
}

func (c *Client) ToggleArchived(ctx context.Context, id string) (string, error) {
	if err := requireID(id); err != nil {
		return "", err
	}
	return c.postForm(ctx, "toggle archived", c.entryPath(id, "/togglearchived"), nil, nil)
}

func (c *Client) SetFavourite(ctx context.Context, id string, favourite bool) (string, error) {
	if err := requireID(id); err != nil {
		return "", err
	}
	action := "unfavour"
	if favourite {
		action = "favour"
	}
	form := url.Values{"tag": {FavouriteTag}}
	return c.postForm(ctx, action+" entry", c.entryPath(id, "/"+action), form, nil)
}

// AddEntry asks the server to fetch and store rawURL. It returns the new
// entry id and the server message.
func (c *Client) AddEntry(ctx context.Context, rawURL string) (string, string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", "", validationErrorf("no url specified")
	}
	var id string
	msg, err := c.postForm(ctx, "add entry", c.apiPath("/entry"), url.Values{"url": {rawURL}}, &id)
	if err != nil {
		return "", "", err
	}
	return id, msg, nil
}

// StartReextract starts re-extraction for one entry, or for all entries when
// entryID is empty.
func (c *Client) StartReextract(ctx context.Context, entryID string) (string, error) {
	body := map[string]*string{"entryId": nil}
	if id := strings.TrimSpace(entryID); id != "" {
		body["entryId"] = &id
	}
	return c.postJSON(ctx, "start reextract", c.apiPath("/reextract"), body, nil)
}

func (c *Client) ReextractStatus(ctx context.Context) (JobStatus, error) {
	var status JobStatus
	if _, err := c.do(ctx, "reextract status", http.MethodGet, c.apiPath("/reextract")+"?status=true", nil, "", &status); err != nil {
		return JobStatus{}, err
	}
	return status, nil
}

func (c *Client) NewToken(ctx context.Context) (string, error) {
	var token string
	if _, err := c.do(ctx, "new token", http.MethodPost, c.apiPath("/newtoken"), nil, "", &token); err != nil {
		return "", err
	}
	return token, nil
}

func (c *Client) ChangePassword(ctx context.Context, password, confirm string) (string, error) {
	if err := validatePasswords(password, confirm); err != nil {
		return "", err
	}
	return c.postForm(ctx, "change password", c.apiPath("/changepassword"), url.Values{"newpassword": {password}}, nil)
}

func (c *Client) CreateUser(ctx context.Context, name, password, confirm string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", validationErrorf("no account name specified")
	}
	if err := validatePasswords(password, confirm); err != nil {
		return "", err
	}
	return c.postJSON(ctx, "create user", c.userPath(name), map[string]string{"newpassword": password}, nil)
}

func (c *Client) DeleteAccount(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", validationErrorf("no account name specified")
	}
	return c.postJSON(ctx, "delete account", c.userPath(name), map[string]bool{"delete": true}, nil)
}

func (c *Client) postJSON(ctx context.Context, op, fullURL string, payload any, out any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode %s payload: %w", op, err)
	}
	return c.do(ctx, op, http.MethodPost, fullURL, bytes.NewReader(body), "application/json; charset=utf-8", out)
}

func (c *Client) postForm(ctx context.Context, op, fullURL string, form url.Values, out any) (string, error) {
	var body io.Reader
	if len(form) > 0 {
		body = strings.NewReader(form.Encode())
	}
	return c.do(ctx, op, http.MethodPost, fullURL, body, "application/x-www-form-urlencoded", out)
}

// do sends one request and unpacks the response envelope into out. It
// returns the envelope message.
func (c *Client) do(ctx context.Context, op, method, fullURL string, body io.Reader, contentType string, out any) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &TransportError{Op: op, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	req, err := c.newRequest(ctx, method, fullURL, body)
	if err != nil {
		return "", &TransportError{Op: op, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	requestID := req.Header.Get("X-Request-Id")
	c.logger.Debug("request", "op", op, "method", method, "path", req.URL.Path, "request_id", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "op", op, "request_id", requestID, "err", err)
		return "", &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decodeErr == nil && !env.Success && env.Message != "" {
			c.logger.Warn("server rejected request", "op", op, "status", resp.StatusCode, "message", env.Message)
			return "", &APIError{Op: op, Message: env.Message}
		}
		snippet := strings.TrimSpace(string(raw))
		if len(snippet) > 4096 {
			snippet = snippet[:4096]
		}
		c.logger.Warn("unexpected status", "op", op, "status", resp.StatusCode, "request_id", requestID)
		return "", &TransportError{Op: op, Err: fmt.Errorf("status %d: %s", resp.StatusCode, snippet)}
	}
	if decodeErr != nil {
		return "", &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", decodeErr)}
	}
	if !env.Success {
		c.logger.Warn("server rejected request", "op", op, "message", env.Message)
		return "", &APIError{Op: op, Message: env.Message}
	}
	if out != nil && len(env.Value) > 0 && !bytes.Equal(env.Value, []byte("null")) {
		if err := json.Unmarshal(env.Value, out); err != nil {
			return "", &TransportError{Op: op, Err: fmt.Errorf("decode %s value: %w", op, err)}
		}
	}
	return env.Message, nil
}

func (c *Client) newRequest(ctx context.Context, method, fullURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	return req, nil
}

func (c *Client) apiPath(path string) string {
	return c.userPath(c.username) + path
}

func (c *Client) userPath(name string) string {
	return c.baseURL + "/api/" + url.PathEscape(name)
}

func (c *Client) entryPath(id, suffix string) string {
	return c.apiPath("/entry/" + url.PathEscape(id) + suffix)
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return validationErrorf("no entry id specified")
	}
	return nil
}

func validatePasswords(password, confirm string) error {
	if password == "" || confirm == "" {
		return validationErrorf("password must not be empty")
	}
	if password != confirm {
		return validationErrorf("passwords do not match")
	}
	return nil
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
