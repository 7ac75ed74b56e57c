package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ParseLimitOffset reads ?limit= and ?offset=. Missing or malformed values
// fall back to defLimit and 0; limit is clamped to 1..maxLimit and offset to >= 0.
func ParseLimitOffset(r *http.Request, defLimit, maxLimit int) (int, int) {
	q := r.URL.Query()
	limit := atoiOr(q.Get("limit"), defLimit)
	offset := atoiOr(q.Get("offset"), 0)
	return min(max(limit, 1), max(maxLimit, 1)), max(offset, 0)
}

func atoiOr(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return n
}

// parseTimeQuery parses an RFC3339 query param. A missing value is nil, not an error.
func parseTimeQuery(r *http.Request, key string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil //nolint:nilnil // absent filter
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
