// Package models defines the core data structures shared by the cart engine,
// the HTTP client and the server: products, variants, cart lines and wishlist entries.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Product is a catalog item as served by the product list endpoint.
type Product struct {
	// ID is the catalog identifier of the product.
	ID string `json:"_id"`
	// Name is the display name.
	Name string `json:"name"`
	// Variants holds every sellable color/fabric/code combination.
	Variants []Variant `json:"variants"`
}

// Variant is one color/fabric/SKU combination of a product. Price is the
// per-piece price; a pack holds one piece of every declared size.
type Variant struct {
	Color  string          `json:"color"`
	Fabric string          `json:"type"`
	Code   string          `json:"code,omitempty"`
	Price  decimal.Decimal `json:"price"`
	Sizes  []string        `json:"sizes"`
	Images []string        `json:"images,omitempty"`
	Stock  int             `json:"stock"`
}

// UnmarshalJSON accepts both "type" and "fabric" for the fabric field and
// size entries given as plain labels or as {"size": ...} objects.
func (v *Variant) UnmarshalJSON(data []byte) error {
	var raw struct {
		Color  string            `json:"color"`
		Type   string            `json:"type"`
		Fabric string            `json:"fabric"`
		Code   string            `json:"code"`
		Price  decimal.Decimal   `json:"price"`
		Sizes  []json.RawMessage `json:"sizes"`
		Images []string          `json:"images"`
		Stock  int               `json:"stock"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*v = Variant{
		Color:  raw.Color,
		Fabric: raw.Type,
		Code:   raw.Code,
		Price:  raw.Price,
		Images: raw.Images,
		Stock:  raw.Stock,
	}
	if v.Fabric == "" {
		v.Fabric = raw.Fabric
	}
	for _, s := range raw.Sizes {
		label, err := sizeLabel(s)
		if err != nil {
			return fmt.Errorf("variant size: %w", err)
		}
		v.Sizes = append(v.Sizes, label)
	}
	return nil
}

func sizeLabel(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var obj struct {
			Size json.RawMessage `json:"size"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return "", err
		}
		raw = obj.Size
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// CartLine is the value stored under a cart line key.
type CartLine struct {
	// Quantity is the number of packs; always >= 1 for a stored line.
	Quantity int `json:"quantity"`
	// Color of the selected variant, may be empty for legacy lines.
	Color string `json:"color"`
	// Fabric (wire name "type") of the selected variant.
	Fabric string `json:"type"`
	// Code is the SKU code of the selected variant.
	Code string `json:"code"`
	// ProductID is the catalog id of the product.
	ProductID string `json:"productId"`
}

// WishlistEntry identifies a wishlisted product color. The same product in
// a different color is a different entry.
type WishlistEntry struct {
	ProductID string `json:"productId"`
	Color     string `json:"color"`
}

// UnmarshalJSON accepts productId either as a plain id or as an expanded
// product object carrying "_id".
func (w *WishlistEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		ProductID json.RawMessage `json:"productId"`
		Color     string          `json:"color"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	w.Color = raw.Color
	w.ProductID = ""

	id := bytes.TrimSpace(raw.ProductID)
	if len(id) == 0 || bytes.Equal(id, []byte("null")) {
		return nil
	}
	if id[0] == '{' {
		var p struct {
			ID string `json:"_id"`
		}
		if err := json.Unmarshal(id, &p); err != nil {
			return err
		}
		w.ProductID = p.ID
		return nil
	}
	return json.Unmarshal(id, &w.ProductID)
}

// User represents an application user.
type User struct {
	// Login is the unique name chosen by the user.
	Login string
}

// MergeResult is the server's answer to a guest cart merge. Merged is the
// server's explicit confirmation; Cart is the resulting cart blob.
type MergeResult struct {
	Cart   json.RawMessage `json:"cartData"`
	Merged bool            `json:"merged"`
}
