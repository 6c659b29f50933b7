// Package session reacts to login and logout. It watches whether a bearer
// token is present and, on each transition, merges or clears the cart and
// wishlist so no guest item is lost and no user data outlives the session.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TokenKey is the local storage key holding the bearer token.
const TokenKey = "token"

// Storage is the local key-value persistence.
type Storage interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) error
	Remove(key string) error
}

// Credentials holds the bearer token of the current user and persists it.
// It satisfies both cart.Session and remote.TokenSource.
type Credentials struct {
	storage Storage
	mu      sync.RWMutex
	token   string
}

// NewCredentials loads a previously saved token from storage, if any.
func NewCredentials(storage Storage) *Credentials {
	c := &Credentials{storage: storage}
	if raw, ok := storage.Get(TokenKey); ok {
		c.token = string(raw)
	}
	return c
}

// Token returns the bearer token, empty for a guest.
func (c *Credentials) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Authenticated reports whether a token is present.
func (c *Credentials) Authenticated() bool {
	return c.Token() != ""
}

// Set stores token. An empty token logs the user out.
func (c *Credentials) Set(token string) error {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	if token == "" {
		return c.storage.Remove(TokenKey)
	}
	return c.storage.Set(TokenKey, []byte(token))
}

// Cart is the part of the cart store driven by session changes.
type Cart interface {
	MergeGuest(ctx context.Context) error
	Refresh(ctx context.Context) error
	Clear()
}

// Wishlist is the part of the wishlist driven by session changes.
type Wishlist interface {
	MergeGuest(ctx context.Context) error
	Refresh(ctx context.Context) error
	ClearRemote()
}

// Controller turns observed token presence into login and logout edges.
type Controller struct {
	cart     Cart
	wishlist Wishlist
	log      *zap.Logger

	mu       sync.Mutex
	hadToken bool
}

// NewController creates a controller that assumes no token was seen yet.
func NewController(cart Cart, wishlist Wishlist, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{cart: cart, wishlist: wishlist, log: log}
}

// Start records the session present at application start. With a token the
// cart and wishlist are loaded from the server; nothing is merged.
func (c *Controller) Start(ctx context.Context, hasToken bool) error {
	c.mu.Lock()
	c.hadToken = hasToken
	c.mu.Unlock()

	if !hasToken {
		return nil
	}
	var g errgroup.Group
	g.Go(func() error { return c.cart.Refresh(ctx) })
	g.Go(func() error { return c.wishlist.Refresh(ctx) })
	if err := g.Wait(); err != nil {
		return fmt.Errorf("session start: %w", err)
	}
	return nil
}

// Observe is called with the current token presence. Only transitions act:
// a login merges the guest cart and wishlist into the account, a logout
// clears the user's cart and the wishlist mirror.
func (c *Controller) Observe(ctx context.Context, hasToken bool) error {
	c.mu.Lock()
	prev := c.hadToken
	c.hadToken = hasToken
	c.mu.Unlock()

	switch {
	case !prev && hasToken:
		c.log.Info("login detected, merging guest data")
		return c.login(ctx)
	case prev && !hasToken:
		c.log.Info("logout detected, clearing user data")
		c.cart.Clear()
		c.wishlist.ClearRemote()
	}
	return nil
}

// login merges both lists concurrently. A failed merge still refreshes from
// the server; unmerged guest lines stay on top of the server copy and are
// pushed again by a later refresh.
func (c *Controller) login(ctx context.Context) error {
	var cartErr, wishErr error
	var g errgroup.Group
	g.Go(func() error {
		cartErr = errors.Join(c.cart.MergeGuest(ctx), c.cart.Refresh(ctx))
		return nil
	})
	g.Go(func() error {
		wishErr = c.wishlist.MergeGuest(ctx)
		if wishErr != nil {
			wishErr = errors.Join(wishErr, c.wishlist.Refresh(ctx))
		}
		return nil
	})
	_ = g.Wait()

	if err := errors.Join(cartErr, wishErr); err != nil {
		c.log.Warn("session merge incomplete", zap.Error(err))
		return fmt.Errorf("session login: %w", err)
	}
	return nil
}
