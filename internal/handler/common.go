package handler // handler defines http handlers

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
)

// getUserID extracts the authenticated user id placed in the context by
// the JWT middleware.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pathID parses a numeric path parameter, rejecting zero.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// seatLabel renders a seat position as a compact label like A5 or AB12.
// Rows count from 1 and map to letters base-26.
func seatLabel(row, number uint32) string {
	i := int(row) - 1
	if i < 0 {
		return ""
	}
	var label []rune
	for {
		label = append([]rune{rune('A' + i%26)}, label...)
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	return string(label) + strconv.FormatUint(uint64(number), 10)
}

// seatIDsValid reports whether a requested seat set is well formed:
// non-empty, no zero ids, no duplicates.  A malformed set is rejected
// outright rather than silently reduced to its valid subset.
func seatIDsValid(ids []uint64) bool {
	if len(ids) == 0 {
		return false
	}
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			return false
		}
		if _, ok := seen[id]; ok {
			return false
		}
		seen[id] = struct{}{}
	}
	return true
}
