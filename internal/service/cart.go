package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/atinyakov/packcart/internal/cart"
	"github.com/atinyakov/packcart/internal/cartkey"
	"github.com/atinyakov/packcart/internal/models"
	"go.uber.org/zap"
)

// ErrInvalidItem is returned for a cart item without a product id.
var ErrInvalidItem = errors.New("invalid item")

// CartRepository defines the persistence operations needed by the CartService.
type CartRepository interface {
	// GetLines returns every stored line of the user keyed by line key.
	GetLines(ctx context.Context, userID string) (map[string]models.CartLine, error)
	// AddQuantity adds line.Quantity packs to key, creating the line if needed.
	AddQuantity(ctx context.Context, userID, key string, line models.CartLine) error
	// MergeLines adds every line atomically.
	MergeLines(ctx context.Context, userID string, lines map[string]models.CartLine) error
	// SetQuantity sets the quantity of an existing line.
	SetQuantity(ctx context.Context, userID, key string, quantity int) error
	// DeleteLines removes the given lines.
	DeleteLines(ctx context.Context, userID string, keys []string) error
}

// CartService implements the server side of the cart. Every operation
// returns the user's full cart after the change.
type CartService struct {
	repo CartRepository
	log  *zap.Logger
}

// NewCartService constructs a CartService with the provided CartRepository.
func NewCartService(repo CartRepository, log *zap.Logger) *CartService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CartService{repo: repo, log: log}
}

// Get returns the stored cart.
func (s *CartService) Get(ctx context.Context, userID string) (cart.State, error) {
	lines, err := s.repo.GetLines(ctx, userID)
	if err != nil {
		return nil, err
	}
	return cart.State(lines), nil
}

// Add adds one pack of itemID. A bare product id is promoted to a line key;
// non-empty color and fabric fill the key's segments.
func (s *CartService) Add(ctx context.Context, userID, itemID, color, fabric string) (cart.State, error) {
	p := lineParts(itemID)
	if color != "" {
		p.Color = color
	}
	if fabric != "" {
		p.Fabric = fabric
	}
	if p.ProductID == "" {
		return nil, ErrInvalidItem
	}

	line := models.CartLine{Quantity: 1, Color: p.Color, Fabric: p.Fabric, Code: p.Code, ProductID: p.ProductID}
	if err := s.repo.AddQuantity(ctx, userID, p.Key(), line); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// Update sets the quantity of itemID; zero or less removes the line.
func (s *CartService) Update(ctx context.Context, userID, itemID string, quantity int) (cart.State, error) {
	p := lineParts(itemID)
	if p.ProductID == "" {
		return nil, ErrInvalidItem
	}
	key := p.Key()

	var err error
	if quantity <= 0 {
		err = s.repo.DeleteLines(ctx, userID, []string{key})
	} else {
		err = s.repo.SetQuantity(ctx, userID, key, quantity)
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// Merge adds a guest cart, in any supported format, to the stored one.
// Quantities of lines present on both sides are summed; nothing is deleted.
func (s *CartService) Merge(ctx context.Context, userID string, guest []byte) (cart.State, error) {
	lines := cart.Normalize(guest)
	if len(lines) > 0 {
		stored, err := s.repo.GetLines(ctx, userID)
		if err != nil {
			return nil, err
		}
		for key, line := range lines {
			have, ok := stored[key]
			if !ok || have.Quantity <= math.MaxInt32-line.Quantity {
				continue
			}
			if have.Quantity >= math.MaxInt32 {
				delete(lines, key)
				continue
			}
			line.Quantity = math.MaxInt32 - have.Quantity
			lines[key] = line
		}
		if err := s.repo.MergeLines(ctx, userID, lines); err != nil {
			return nil, fmt.Errorf("merge cart: %w", err)
		}
		s.log.Info("guest cart merged", zap.String("user", userID), zap.Int("lines", len(lines)))
	}
	return s.Get(ctx, userID)
}

// lineParts canonicalises an item id from the wire: a composite key is
// decoded, anything else is taken as a bare product id.
func lineParts(itemID string) cartkey.Parts {
	if cartkey.IsComposite(itemID) {
		return cartkey.Decode(itemID)
	}
	return cartkey.Parts{ProductID: itemID}
}
