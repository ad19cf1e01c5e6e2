// Package pagination derives follow-up listing targets and estimates how many pages a listing spans.
package pagination

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// WithOffset returns target with param set to offset. Any existing occurrence of param,
// matched case-insensitively, is removed first. Other query pairs keep their order and encoding.
func WithOffset(target, param string, offset int) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parse target %q: %w", target, err)
	}

	var kept []string
	for _, pair := range splitQuery(u.RawQuery) {
		if strings.EqualFold(queryKey(pair), param) {
			continue
		}
		kept = append(kept, pair)
	}
	kept = append(kept, url.QueryEscape(param)+"="+strconv.Itoa(offset))
	u.RawQuery = strings.Join(kept, "&")
	return u.String(), nil
}

// OffsetOf reads param from target, matched case-insensitively. ok is false when the
// parameter is absent or not a non-negative integer.
func OffsetOf(target, param string) (offset int, ok bool) {
	u, err := url.Parse(target)
	if err != nil {
		return 0, false
	}
	for _, pair := range splitQuery(u.RawQuery) {
		if !strings.EqualFold(queryKey(pair), param) {
			continue
		}
		_, raw, _ := strings.Cut(pair, "=")
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func splitQuery(raw string) []string {
	var pairs []string
	for _, pair := range strings.FieldsFunc(raw, func(r rune) bool { return r == '&' || r == ';' }) {
		if pair != "" {
			pairs = append(pairs, pair)
		}
	}
	return pairs
}

func queryKey(pair string) string {
	key, _, _ := strings.Cut(pair, "=")
	if unescaped, err := url.QueryUnescape(key); err == nil {
		return unescaped
	}
	return key
}
