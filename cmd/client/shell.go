package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/atinyakov/packcart/internal/cart"
	"github.com/atinyakov/packcart/internal/catalog"
	"github.com/atinyakov/packcart/internal/drawer"
	"github.com/atinyakov/packcart/internal/models"
	"github.com/atinyakov/packcart/internal/pricing"
	"github.com/atinyakov/packcart/internal/session"
	"github.com/atinyakov/packcart/internal/wishlist"
	"github.com/shopspring/decimal"
)

const helpText = `Available commands:
  products                       list the catalog
  add <productId> [variant#]     add one pack to the cart
  qty <line#|key> <quantity>     set the quantity of a cart line
  rm <line#|key>                 remove a cart line
  cart                           show the cart and totals
  total                          show the order total
  wish <productId> [variant#]    save a product color to the wishlist
  unwish <productId> [variant#]  remove it again
  wishlist                       show the wishlist
  login <name>                   register or log in and merge the guest cart
  logout                         log out
  drawer                         show the cart drawer state
  exit                           quit`

// registrar issues bearer tokens for a login.
type registrar interface {
	Register(ctx context.Context, login string) (string, error)
}

// shell wires the cart engine to a line-oriented terminal interface.
type shell struct {
	out      io.Writer
	creds    *session.Credentials
	accounts registrar
	catalog  *catalog.Cache
	cart     *cart.Store
	wishlist *wishlist.Manager
	session  *session.Controller
	drawer   *drawer.Controller
}

// run reads commands from in until EOF or "exit".
func (s *shell) run(ctx context.Context, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "packcart> ")
		if !scanner.Scan() {
			return
		}
		args := strings.Fields(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if !s.exec(ctx, args) {
			return
		}
	}
}

// exec runs one command and reports whether the shell should continue.
func (s *shell) exec(ctx context.Context, args []string) bool {
	switch args[0] {
	case "help":
		fmt.Fprintln(s.out, helpText)
	case "products":
		s.products()
	case "add":
		if len(args) < 2 {
			fmt.Fprintln(s.out, "Usage: add <productId> [variant#]")
			return true
		}
		v, ok := s.variant(args[1], args[2:])
		if !ok {
			return true
		}
		// errors were already reported through the notifier
		_ = s.cart.AddLine(ctx, args[1], v.Color, v.Fabric, v.Code)
	case "qty":
		if len(args) < 3 {
			fmt.Fprintln(s.out, "Usage: qty <line#|key> <quantity>")
			return true
		}
		n, err := strconv.Atoi(args[2])
		if err != nil {
			fmt.Fprintln(s.out, "Quantity must be a number")
			return true
		}
		if key, ok := s.lineKey(args[1]); ok {
			_ = s.cart.UpdateQuantity(ctx, key, n)
		}
	case "rm":
		if len(args) < 2 {
			fmt.Fprintln(s.out, "Usage: rm <line#|key>")
			return true
		}
		if key, ok := s.lineKey(args[1]); ok {
			_ = s.cart.RemoveLine(ctx, key)
		}
	case "cart":
		s.showCart()
	case "total":
		s.showTotal()
	case "wish", "unwish":
		if len(args) < 2 {
			fmt.Fprintf(s.out, "Usage: %s <productId> [variant#]\n", args[0])
			return true
		}
		v, ok := s.variant(args[1], args[2:])
		if !ok {
			return true
		}
		if args[0] == "wish" {
			_ = s.wishlist.Add(ctx, args[1], v.Color)
		} else {
			_ = s.wishlist.Remove(ctx, args[1], v.Color)
		}
	case "wishlist":
		s.showWishlist()
	case "login":
		if len(args) < 2 {
			fmt.Fprintln(s.out, "Usage: login <name>")
			return true
		}
		s.login(ctx, args[1])
	case "logout":
		if err := s.creds.Set(""); err != nil {
			fmt.Fprintf(s.out, "Logout failed: %v\n", err)
			return true
		}
		_ = s.session.Observe(ctx, false)
		fmt.Fprintln(s.out, "Logged out")
	case "drawer":
		fmt.Fprintf(s.out, "Cart drawer: %s\n", s.drawer.State())
	case "exit":
		fmt.Fprintln(s.out, "Bye")
		return false
	default:
		fmt.Fprintln(s.out, "Unknown command. Type 'help' for a list of commands.")
	}
	return true
}

func (s *shell) login(ctx context.Context, name string) {
	token, err := s.accounts.Register(ctx, name)
	if err != nil {
		fmt.Fprintf(s.out, "Login failed: %v\n", err)
		return
	}
	if err := s.creds.Set(token); err != nil {
		fmt.Fprintf(s.out, "Login failed: %v\n", err)
		return
	}
	if err := s.session.Observe(ctx, true); err != nil {
		fmt.Fprintln(s.out, "Logged in, but some guest data could not be merged yet")
		return
	}
	fmt.Fprintf(s.out, "Logged in as %s\n", name)
}

func (s *shell) products() {
	list := s.catalog.List()
	if len(list) == 0 {
		fmt.Fprintln(s.out, "No products")
		return
	}
	for _, p := range list {
		r := pricing.PerPieceRange(p)
		fmt.Fprintf(s.out, "%s  %s  %s/pc\n", p.ID, p.Name, priceRange(r))
		for i, v := range p.Variants {
			fmt.Fprintf(s.out, "    #%d %s %s  %d pcs  pack %s\n",
				i+1, v.Color, v.Fabric, pricing.PieceCount(v), money(pricing.PackPrice(v)))
		}
	}
}

// variant picks the variant named by an optional 1-based index. A product
// missing from the catalog is added without variant details.
func (s *shell) variant(productID string, rest []string) (models.Variant, bool) {
	p, ok := s.catalog.Product(productID)
	if !ok || len(p.Variants) == 0 {
		return models.Variant{}, true
	}
	idx := 1
	if len(rest) > 0 {
		n, err := strconv.Atoi(rest[0])
		if err != nil || n < 1 || n > len(p.Variants) {
			fmt.Fprintf(s.out, "Variant must be between 1 and %d\n", len(p.Variants))
			return models.Variant{}, false
		}
		idx = n
	}
	return p.Variants[idx-1], true
}

// lineKey accepts a line number from the cart listing or a raw key.
func (s *shell) lineKey(arg string) (string, bool) {
	lines := s.cart.Lines()
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(lines) {
			fmt.Fprintln(s.out, "No such cart line")
			return "", false
		}
		return lines[n-1].Key, true
	}
	for _, l := range lines {
		if l.Key == arg {
			return arg, true
		}
	}
	fmt.Fprintln(s.out, "No such cart line")
	return "", false
}

func (s *shell) showCart() {
	lines := s.cart.Lines()
	if len(lines) == 0 {
		fmt.Fprintln(s.out, "Cart is empty")
		return
	}
	for i, l := range lines {
		name := l.ProductID
		if p, ok := s.catalog.Product(l.ProductID); ok {
			name = p.Name
		}
		amount, ok := s.cart.LineAmount(l.CartLine)
		price := "n/a"
		if ok {
			price = money(amount)
		}
		fmt.Fprintf(s.out, "%d. %s %s %s x%d  %s\n", i+1, name, l.Color, l.Fabric, l.Quantity, price)
	}
	s.showTotal()
}

func (s *shell) showTotal() {
	subtotal := s.cart.TotalAmount()
	fmt.Fprintf(s.out, "Items: %d  Subtotal: %s  Total: %s\n",
		s.cart.TotalItemCount(), money(subtotal), money(pricing.OrderTotal(subtotal)))
}

func (s *shell) showWishlist() {
	entries := s.wishlist.Entries()
	if len(entries) == 0 {
		fmt.Fprintln(s.out, "Wishlist is empty")
		return
	}
	for _, e := range entries {
		name := e.ProductID
		if p, ok := s.catalog.Product(e.ProductID); ok {
			name = p.Name
		}
		fmt.Fprintf(s.out, "- %s %s\n", name, e.Color)
	}
}

func money(d decimal.Decimal) string {
	return pricing.Currency + pricing.FormatNumber(d)
}

func priceRange(r pricing.Range) string {
	if r.Min.Equal(r.Max) {
		return money(r.Min)
	}
	return money(r.Min) + "-" + money(r.Max)
}
