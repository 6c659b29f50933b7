package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTripperFunc lets a test stand in for the network.
type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(token string, fn roundTripperFunc) *Client {
	return New(&http.Client{Transport: fn, Timeout: time.Second}, "http://example.com/", staticToken(token), nil)
}

func jsonResponse(code int, body string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestCart_NetworkError(t *testing.T) {
	c := newTestClient("tok", func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("network down")
	})
	_, err := c.Cart().Fetch(context.Background())
	if err == nil || !strings.Contains(err.Error(), "failed") {
		t.Errorf("expected network failure, got %v", err)
	}
}

func TestCart_ServerError(t *testing.T) {
	c := newTestClient("tok", func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusInternalServerError,
			Body:       io.NopCloser(strings.NewReader("internal error\n")),
		}, nil
	})
	_, err := c.Cart().Add(context.Background(), "p1::::::", "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRemote)
	assert.Contains(t, err.Error(), "server error: internal error")

	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "internal error", rerr.UserMessage())
}

func TestCart_Unauthorized(t *testing.T) {
	c := newTestClient("stale", func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnauthorized, `{"success":false,"message":"Not Authorized Login Again"}`), nil
	})
	_, err := c.Cart().Fetch(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "Not Authorized Login Again")
}

func TestCart_InvalidJSON(t *testing.T) {
	c := newTestClient("tok", func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, "not-json"), nil
	})
	_, err := c.Cart().Fetch(context.Background())
	if err == nil || !strings.Contains(err.Error(), "invalid response") {
		t.Errorf("expected JSON decode error, got %v", err)
	}
}

func TestCart_SuccessFalseCarriesMessage(t *testing.T) {
	c := newTestClient("tok", func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"success":false,"message":"Out of stock"}`), nil
	})
	_, err := c.Cart().Update(context.Background(), "p1::::::", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRemote)

	var msg interface{ UserMessage() string }
	require.ErrorAs(t, err, &msg)
	assert.Equal(t, "Out of stock", msg.UserMessage())
}

func TestCart_Requests(t *testing.T) {
	var got []map[string]any
	var paths []string
	c := newTestClient("tok", func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		got = append(got, body)
		paths = append(paths, req.URL.Path)
		return jsonResponse(http.StatusOK, `{"success":true,"cartData":{"p1::Red::A::":{"quantity":2}}}`), nil
	})
	ctx := context.Background()
	cart := c.Cart()

	blob, err := cart.Add(ctx, "p1::Red::A::", "Red", "A")
	require.NoError(t, err)
	assert.JSONEq(t, `{"p1::Red::A::":{"quantity":2}}`, string(blob))

	_, err = cart.Update(ctx, "p1::Red::A::", 4)
	require.NoError(t, err)
	_, err = cart.Fetch(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{apiCartAdd, apiCartUpdate, apiCartGet}, paths)
	assert.Equal(t, map[string]any{"itemId": "p1::Red::A::", "color": "Red", "type": "A"}, got[0])
	assert.Equal(t, map[string]any{"itemId": "p1::Red::A::", "quantity": float64(4)}, got[1])
	assert.Equal(t, map[string]any{}, got[2])
}

func TestCart_Merge(t *testing.T) {
	t.Run("merged", func(t *testing.T) {
		c := newTestClient("tok", func(req *http.Request) (*http.Response, error) {
			var body struct {
				CartData map[string]any `json:"cartData"`
			}
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			assert.Contains(t, body.CartData, "p1::::::")
			return jsonResponse(http.StatusOK, `{"success":true,"cartData":{"p1::::::":3}}`), nil
		})
		res, err := c.Cart().Merge(context.Background(), []byte(`{"p1::::::":{"quantity":1}}`))
		require.NoError(t, err)
		assert.True(t, res.Merged)
		assert.JSONEq(t, `{"p1::::::":3}`, string(res.Cart))
	})

	t.Run("declined", func(t *testing.T) {
		c := newTestClient("tok", func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"success":false,"message":"merge failed"}`), nil
		})
		res, err := c.Cart().Merge(context.Background(), []byte(`{}`))
		require.NoError(t, err)
		assert.False(t, res.Merged)
	})

	t.Run("server error", func(t *testing.T) {
		c := newTestClient("tok", func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusBadGateway, `bad gateway`), nil
		})
		_, err := c.Cart().Merge(context.Background(), []byte(`{}`))
		assert.ErrorIs(t, err, ErrRemote)
	})
}

func TestWishlist(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(apiWishlist, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"wishlist":[
			{"productId":{"_id":"p1","name":"Shirt"},"color":"Red"},
			{"productId":"p2","color":""}
		]}`)
	})
	var added, removed map[string]string
	mux.HandleFunc(apiWishlistAdd, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&added)
		_, _ = io.WriteString(w, `{"success":true}`)
	})
	mux.HandleFunc(apiWishlistRemove, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&removed)
		_, _ = io.WriteString(w, `{"success":true}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.Client(), srv.URL, staticToken("tok"), nil)
	ctx := context.Background()

	entries, err := c.Wishlist().List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "p1", entries[0].ProductID)
	assert.Equal(t, "Red", entries[0].Color)
	assert.Equal(t, "p2", entries[1].ProductID)

	require.NoError(t, c.Wishlist().Add(ctx, "p3", "Blue"))
	assert.Equal(t, map[string]string{"productId": "p3", "color": "Blue"}, added)

	require.NoError(t, c.Wishlist().Remove(ctx, "p1", "Red"))
	assert.Equal(t, map[string]string{"productId": "p1", "color": "Red"}, removed)
}

func TestProductsAndRegister(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(apiProductList, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"), "anonymous client sends no token")
		_, _ = io.WriteString(w, `{"success":true,"products":[
			{"_id":"p1","name":"Shirt","variants":[{"color":"Red","type":"A","price":"200","sizes":["S",{"size":"M"}]}]}
		]}`)
	})
	mux.HandleFunc(apiRegister, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["login"] == "" {
			http.Error(w, "login required", http.StatusBadRequest)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"token":"abc"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.Client(), srv.URL, staticToken(""), nil)
	ctx := context.Background()

	products, err := c.Products(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, []string{"S", "M"}, products[0].Variants[0].Sizes)
	assert.Equal(t, "200", products[0].Variants[0].Price.String())

	token, err := c.Register(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	_, err = c.Register(ctx, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login required")
}
