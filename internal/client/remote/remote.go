// Package remote is the HTTP client for the packcart backend. It speaks the
// JSON wire API: every response carries a success flag and an optional
// message, and the client turns failures into errors that keep that message.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/atinyakov/packcart/internal/models"
	"go.uber.org/zap"
)

const (
	apiCartGet        = "/api/cart/get"
	apiCartAdd        = "/api/cart/add"
	apiCartUpdate     = "/api/cart/update"
	apiCartMerge      = "/api/cart/merge"
	apiWishlist       = "/api/wishlist"
	apiWishlistAdd    = "/api/wishlist/add"
	apiWishlistRemove = "/api/wishlist/remove"
	apiProductList    = "/api/product/list"
	apiRegister       = "/api/user/register"
)

var (
	// ErrUnauthorized is returned when the server rejects the bearer token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRemote is returned when the server reports a failure.
	ErrRemote = errors.New("remote error")
)

// Error is a failure reported by the server.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error: status %d", e.Status)
	}
	return fmt.Sprintf("server error: %s", e.Message)
}

// UserMessage is the server message, suitable for showing to the user.
func (e *Error) UserMessage() string { return e.Message }

func (e *Error) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return ErrRemote
}

// TokenSource yields the current bearer token; empty means anonymous.
type TokenSource interface {
	Token() string
}

// Client talks to the backend over HTTP.
type Client struct {
	http    *http.Client
	baseURL string
	tokens  TokenSource
	log     *zap.Logger
}

// New creates a client. A nil http client gets a 10s timeout.
func New(httpClient *http.Client, baseURL string, tokens TokenSource, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		log:     log,
	}
}

// status is the part of every response envelope.
type status struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type cartResponse struct {
	status
	CartData json.RawMessage `json:"cartData"`
}

// do sends body as JSON (when non-nil) and decodes the envelope into out.
// A response with success=false is returned as *Error together with the
// decoded envelope so callers that care can still inspect it.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	c.log.Debug("remote call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Status: resp.StatusCode, Message: errorMessage(data)}
	}

	var st status
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("invalid response: %w", err)
		}
	}
	if !st.Success {
		return &Error{Status: resp.StatusCode, Message: st.Message}
	}
	return nil
}

// errorMessage extracts the message of an error body, which is either a JSON
// envelope or the plain text written by http.Error.
func errorMessage(data []byte) string {
	var st status
	if err := json.Unmarshal(data, &st); err == nil && st.Message != "" {
		return st.Message
	}
	return strings.TrimSpace(string(data))
}

// Register creates an account for login and returns its bearer token.
func (c *Client) Register(ctx context.Context, login string) (string, error) {
	var resp struct {
		status
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, apiRegister, map[string]string{"login": login}, &resp); err != nil {
		return "", fmt.Errorf("register failed: %w", err)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("register failed: %w", &Error{Status: http.StatusOK, Message: "empty token"})
	}
	return resp.Token, nil
}

// Products returns the product catalog.
func (c *Client) Products(ctx context.Context) ([]models.Product, error) {
	var resp struct {
		status
		Products []models.Product `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, apiProductList, nil, &resp); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return resp.Products, nil
}

// Cart returns the cart endpoints of c.
func (c *Client) Cart() *Cart { return &Cart{c: c} }

// Wishlist returns the wishlist endpoints of c.
func (c *Client) Wishlist() *Wishlist { return &Wishlist{c: c} }

// Cart is the server-side cart. Every call returns the full raw cart blob.
type Cart struct {
	c *Client
}

func (a *Cart) call(ctx context.Context, path string, body any) ([]byte, error) {
	var resp cartResponse
	if err := a.c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	return resp.CartData, nil
}

// Fetch returns the stored cart.
func (a *Cart) Fetch(ctx context.Context) ([]byte, error) {
	return a.call(ctx, apiCartGet, struct{}{})
}

// Add adds one pack of the line identified by key.
func (a *Cart) Add(ctx context.Context, key, color, fabric string) ([]byte, error) {
	return a.call(ctx, apiCartAdd, map[string]string{"itemId": key, "color": color, "type": fabric})
}

// Update sets the quantity of key; zero or less removes it.
func (a *Cart) Update(ctx context.Context, key string, quantity int) ([]byte, error) {
	return a.call(ctx, apiCartUpdate, map[string]any{"itemId": key, "quantity": quantity})
}

// Merge sends the guest cart. A well-formed response with success=false is
// not an error: it yields Merged=false so the caller keeps its local cart.
func (a *Cart) Merge(ctx context.Context, local []byte) (models.MergeResult, error) {
	var resp cartResponse
	err := a.c.do(ctx, http.MethodPost, apiCartMerge, map[string]json.RawMessage{"cartData": local}, &resp)
	var rerr *Error
	if err != nil && !(errors.As(err, &rerr) && rerr.Status >= 200 && rerr.Status <= 299) {
		return models.MergeResult{}, err
	}
	if err != nil {
		a.c.log.Warn("server declined cart merge", zap.String("message", rerr.Message))
	}
	return models.MergeResult{Cart: resp.CartData, Merged: err == nil}, nil
}

// Wishlist is the server-side wishlist of the logged-in user.
type Wishlist struct {
	c *Client
}

// List returns the stored wishlist.
func (w *Wishlist) List(ctx context.Context) ([]models.WishlistEntry, error) {
	var resp struct {
		status
		Wishlist []models.WishlistEntry `json:"wishlist"`
	}
	if err := w.c.do(ctx, http.MethodGet, apiWishlist, nil, &resp); err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	return resp.Wishlist, nil
}

// Add stores an entry.
func (w *Wishlist) Add(ctx context.Context, productID, color string) error {
	if err := w.c.do(ctx, http.MethodPost, apiWishlistAdd, models.WishlistEntry{ProductID: productID, Color: color}, nil); err != nil {
		return fmt.Errorf("add to wishlist: %w", err)
	}
	return nil
}

// Remove deletes an entry.
func (w *Wishlist) Remove(ctx context.Context, productID, color string) error {
	if err := w.c.do(ctx, http.MethodPost, apiWishlistRemove, models.WishlistEntry{ProductID: productID, Color: color}, nil); err != nil {
		return fmt.Errorf("remove from wishlist: %w", err)
	}
	return nil
}
