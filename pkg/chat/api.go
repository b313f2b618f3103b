package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	chaterrors "github.com/lnbits/chat/pkg/errors"
	"github.com/lnbits/chat/pkg/logger"
	"github.com/lnbits/chat/pkg/model"
)

// Client calls the chat service's REST surface. It is safe for concurrent
// use; sessions share one instance per server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *logger.Logger
}

type ClientOption func(*Client)

// WithToken attaches a bearer token, required for claim and the admin
// endpoints.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

func WithLogger(l *logger.Logger) ClientOption {
	return func(c *Client) { c.log = l }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) PublicCategory(ctx context.Context, categoriesID string) (model.PublicCategory, error) {
	path := fmt.Sprintf("/chat/api/v1/public/categories/%s", categoriesID)
	return request[model.PublicCategory](ctx, c, http.MethodGet, path, nil)
}

func (c *Client) CreateChat(ctx context.Context, categoriesID string, data model.CreateChat) (model.Chat, error) {
	path := fmt.Sprintf("/chat/api/v1/public/chats/%s", categoriesID)
	return request[model.Chat](ctx, c, http.MethodPost, path, data)
}

func (c *Client) GetChat(ctx context.Context, categoriesID, chatID string) (model.Chat, error) {
	path := fmt.Sprintf("/chat/api/v1/public/chats/%s/%s", categoriesID, chatID)
	return request[model.Chat](ctx, c, http.MethodGet, path, nil)
}

func (c *Client) SendMessage(ctx context.Context, categoriesID, chatID string, data model.CreateMessage) (model.PaymentRequest, error) {
	path := fmt.Sprintf("/chat/api/v1/public/chats/%s/%s/messages", categoriesID, chatID)
	return request[model.PaymentRequest](ctx, c, http.MethodPost, path, data)
}

func (c *Client) SendTip(ctx context.Context, categoriesID, chatID string, data model.TipRequest) (model.PaymentRequest, error) {
	path := fmt.Sprintf("/chat/api/v1/public/chats/%s/%s/tip", categoriesID, chatID)
	return request[model.PaymentRequest](ctx, c, http.MethodPost, path, data)
}

func (c *Client) ToggleClaim(ctx context.Context, categoriesID, chatID string) (model.Chat, error) {
	path := fmt.Sprintf("/chat/api/v1/public/chats/%s/%s/claim", categoriesID, chatID)
	return request[model.Chat](ctx, c, http.MethodPost, path, nil)
}

func (c *Client) Resolve(ctx context.Context, categoriesID, chatID string, resolved bool) (model.Chat, error) {
	path := fmt.Sprintf("/chat/api/v1/public/chats/%s/%s/resolve", categoriesID, chatID)
	return request[model.Chat](ctx, c, http.MethodPost, path, model.ResolveRequest{Resolved: resolved})
}

func (c *Client) MarkSeen(ctx context.Context, chatID string) (model.Chat, error) {
	path := fmt.Sprintf("/chat/api/v1/chats/%s/seen", chatID)
	return request[model.Chat](ctx, c, http.MethodPost, path, nil)
}

// LnurlInfo points at the external LNURL endpoint for funding a chat
// balance. Consumed as-is, generation is out of scope.
type LnurlInfo struct {
	URL   string `json:"url"`
	Lnurl string `json:"lnurl"`
}

func (c *Client) Lnurl(ctx context.Context, categoriesID, chatID string) (LnurlInfo, error) {
	path := fmt.Sprintf("/chat/api/v1/public/chats/%s/%s/lnurl", categoriesID, chatID)
	return request[LnurlInfo](ctx, c, http.MethodGet, path, nil)
}

func request[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var zero T

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return zero, fmt.Errorf("%w: encode request: %v", chaterrors.ErrValidation, err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return zero, fmt.Errorf("%w: build request: %v", chaterrors.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return zero, fmt.Errorf("%w: %s %s: %v", chaterrors.ErrTransport, method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var body model.Response[any]
		_ = json.NewDecoder(res.Body).Decode(&body)
		msg := body.Error
		if msg == "" {
			msg = res.Status
		}
		return zero, fmt.Errorf("%w: %s", statusErr(res.StatusCode), msg)
	}

	var out model.Response[T]
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return zero, fmt.Errorf("%w: decode response: %v", chaterrors.ErrTransport, err)
	}
	return out.Data, nil
}

func statusErr(status int) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return chaterrors.ErrAuthRequired
	case http.StatusNotFound:
		return chaterrors.ErrNotFound
	case http.StatusTooManyRequests:
		return chaterrors.ErrRateLimited
	case http.StatusBadRequest, http.StatusConflict:
		return chaterrors.ErrRejected
	default:
		return chaterrors.ErrTransport
	}
}
