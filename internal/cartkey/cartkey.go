// Package cartkey encodes the composite identity of a cart line
// (product, color, fabric, SKU code) into a single stable string key.
package cartkey

import (
	"net/url"
	"strings"
)

// Separator joins the encoded segments of a key.
const Separator = "::"

// Parts is the decoded form of a cart line key.
type Parts struct {
	ProductID string
	Color     string
	Fabric    string
	Code      string
}

// Encode builds the key for a line. Every segment is percent-encoded so the
// separator stays unambiguous; the result always has four segments, so
// "pid::::::" is a valid key for a product without variant information.
func Encode(productID, color, fabric, code string) string {
	return strings.Join([]string{
		escape(productID),
		escape(color),
		escape(fabric),
		escape(code),
	}, Separator)
}

// Key is shorthand for Encode(p.ProductID, p.Color, p.Fabric, p.Code).
func (p Parts) Key() string {
	return Encode(p.ProductID, p.Color, p.Fabric, p.Code)
}

// Decode splits a key back into its parts. A string without a separator is a
// legacy bare product id. Missing trailing segments decode as empty, which
// covers the older three-segment "pid::color::type" keys.
func Decode(key string) Parts {
	if !IsComposite(key) {
		return Parts{ProductID: key}
	}
	seg := strings.Split(key, Separator)
	field := func(i int) string {
		if i >= len(seg) {
			return ""
		}
		return unescape(seg[i])
	}
	return Parts{
		ProductID: field(0),
		Color:     field(1),
		Fabric:    field(2),
		Code:      field(3),
	}
}

// IsComposite reports whether key carries variant segments.
func IsComposite(key string) bool {
	return strings.Contains(key, Separator)
}

const hexDigits = "0123456789ABCDEF"

// escape matches JavaScript's encodeURIComponent so keys written by older
// clients compare equal byte for byte.
func escape(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !unreserved(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0F])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}

// unescape keeps a malformed segment verbatim instead of failing.
func unescape(s string) string {
	out, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return out
}
