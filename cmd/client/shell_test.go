package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/atinyakov/packcart/internal/cart"
	"github.com/atinyakov/packcart/internal/catalog"
	"github.com/atinyakov/packcart/internal/client/storage"
	"github.com/atinyakov/packcart/internal/drawer"
	"github.com/atinyakov/packcart/internal/models"
	"github.com/atinyakov/packcart/internal/notify"
	"github.com/atinyakov/packcart/internal/session"
	"github.com/atinyakov/packcart/internal/wishlist"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type productList []models.Product

func (p productList) Products(context.Context) ([]models.Product, error) { return p, nil }

type registrarFunc func(ctx context.Context, login string) (string, error)

func (f registrarFunc) Register(ctx context.Context, login string) (string, error) { return f(ctx, login) }

func newGuestShell(t *testing.T) (*shell, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	kv := storage.NewMemory()
	creds := session.NewCredentials(kv)
	notifier := notify.Writer(out)

	products := catalog.New(productList{{
		ID:   "p1",
		Name: "Shirt",
		Variants: []models.Variant{
			{Color: "Red", Fabric: "Cotton", Price: decimal.NewFromInt(100), Sizes: []string{"S", "M"}},
			{Color: "Blue", Fabric: "Silk", Price: decimal.NewFromInt(150), Sizes: []string{"S", "M", "L"}},
		},
	}}, nil)
	require.NoError(t, products.Load(context.Background()))

	d := drawer.New(nil, nil, drawer.WithLockWindow(time.Hour), drawer.WithAutoCloseDelay(time.Hour))
	store := cart.NewStore(cart.Deps{Catalog: products, Storage: kv, Session: creds, Drawer: d, Notifier: notifier})
	wl := wishlist.NewManager(nil, kv, creds, notifier, nil)

	return &shell{
		out:      out,
		creds:    creds,
		accounts: registrarFunc(func(context.Context, string) (string, error) { return "", errors.New("offline") }),
		catalog:  products,
		cart:     store,
		wishlist: wl,
		session:  session.NewController(store, wl, nil),
		drawer:   d,
	}, out
}

func run(t *testing.T, sh *shell, out *bytes.Buffer, line string) string {
	t.Helper()
	out.Reset()
	sh.exec(context.Background(), strings.Fields(line))
	return out.String()
}

func TestShell_GuestCart(t *testing.T) {
	sh, out := newGuestShell(t)

	assert.Contains(t, run(t, sh, out, "products"), "p1  Shirt  ₹100-₹150/pc")
	assert.Equal(t, "Cart is empty\n", run(t, sh, out, "cart"))

	run(t, sh, out, "add p1")
	run(t, sh, out, "add p1 2")
	listing := run(t, sh, out, "cart")
	assert.Contains(t, listing, "1. Shirt Blue Silk x1  ₹450")
	assert.Contains(t, listing, "2. Shirt Red Cotton x1  ₹200")
	assert.Contains(t, listing, "Subtotal: ₹650  Total: ₹690")

	run(t, sh, out, "qty 2 3")
	assert.Contains(t, run(t, sh, out, "total"), "Items: 4  Subtotal: ₹1,050  Total: ₹1,090")

	run(t, sh, out, "rm 1")
	assert.Contains(t, run(t, sh, out, "total"), "Items: 3  Subtotal: ₹600  Total: ₹640")

	assert.Equal(t, "Cart drawer: open-locked\n", run(t, sh, out, "drawer"))
}

func TestShell_InputErrors(t *testing.T) {
	sh, out := newGuestShell(t)

	assert.Contains(t, run(t, sh, out, "add p1 9"), "Variant must be between 1 and 2")
	assert.Contains(t, run(t, sh, out, "qty 1 x"), "Quantity must be a number")
	assert.Contains(t, run(t, sh, out, "rm 5"), "No such cart line")
	assert.Contains(t, run(t, sh, out, "frobnicate"), "Unknown command")
	assert.Contains(t, run(t, sh, out, "login bob"), "Login failed: offline")
	assert.False(t, sh.creds.Authenticated())
}

func TestShell_GuestWishlist(t *testing.T) {
	sh, out := newGuestShell(t)

	assert.Contains(t, run(t, sh, out, "wish p1 2"), "saved locally")
	assert.Equal(t, "- Shirt Blue\n", run(t, sh, out, "wishlist"))

	run(t, sh, out, "unwish p1 2")
	assert.Equal(t, "Wishlist is empty\n", run(t, sh, out, "wishlist"))
}

func TestShell_Run(t *testing.T) {
	sh, out := newGuestShell(t)
	sh.run(context.Background(), strings.NewReader("help\n\nexit\nproducts\n"))

	assert.Contains(t, out.String(), "Available commands:")
	assert.Contains(t, out.String(), "Bye")
	assert.NotContains(t, out.String(), "Shirt")
}
