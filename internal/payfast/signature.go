package payfast

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// Values is an insertion-ordered parameter list. Field order is part of the
// signed input, so a plain map cannot be used anywhere on the signing path.
type Values struct {
	pairs []pair
}

type pair struct {
	key, value string
}

// Set appends a key/value pair, replacing the value in place when the key is
// already present so insertion order is preserved.
func (v *Values) Set(key, value string) {
	for i := range v.pairs {
		if v.pairs[i].key == key {
			v.pairs[i].value = value
			return
		}
	}
	v.pairs = append(v.pairs, pair{key: key, value: value})
}

// Get returns the value for key, or "" when absent.
func (v *Values) Get(key string) string {
	for _, p := range v.pairs {
		if p.key == key {
			return p.value
		}
	}
	return ""
}

// Delete removes key, keeping the order of the remaining pairs.
func (v *Values) Delete(key string) {
	for i := range v.pairs {
		if v.pairs[i].key == key {
			v.pairs = append(v.pairs[:i], v.pairs[i+1:]...)
			return
		}
	}
}

// Len returns the number of pairs.
func (v *Values) Len() int { return len(v.pairs) }

// Map flattens the values into a plain map for JSON responses. Signing must
// always go through Sign, never through this.
func (v *Values) Map() map[string]string {
	m := make(map[string]string, len(v.pairs))
	for _, p := range v.pairs {
		m[p.key] = p.value
	}
	return m
}

// Sign builds the gateway parameter string and returns its MD5 hex digest.
// Empty values are skipped, non-empty values are trimmed and encoded, pairs
// are joined in insertion order, and the passphrase (when configured) is
// appended last. Outbound signing and inbound verification both run through
// this function, so the byte construction only exists in one place.
func Sign(v *Values, passphrase string) string {
	var b strings.Builder
	for _, p := range v.pairs {
		if p.value == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(encode(strings.TrimSpace(p.value)))
	}
	if passphrase != "" {
		b.WriteString("&passphrase=")
		b.WriteString(encode(strings.TrimSpace(passphrase)))
	}

	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// upperhex is used for percent-escapes; the gateway expects uppercase hex.
const upperhex = "0123456789ABCDEF"

// encode reproduces the gateway's reference encoding: JavaScript
// encodeURIComponent with every %20 replaced by '+'. The unreserved set is
// A-Za-z0-9 - _ . ! ~ * ' ( ), which differs from url.QueryEscape on
// ! ~ * ' ( ); using the stdlib here would break signature verification.
func encode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ' ':
			b.WriteByte('+')
		case isUnreserved(c):
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&0xf])
		}
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	if 'A' <= c && c <= 'Z' || 'a' <= c && c <= 'z' || '0' <= c && c <= '9' {
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
