package models

import (
	"strconv"
	"strings"
)

const pagePrefix = "page_"

// PageID returns the page identifier for a 1-based page number.
func PageID(n int) string {
	return pagePrefix + strconv.Itoa(n)
}

// PageNumber parses a "page_<n>" identifier.
func PageNumber(id string) (int, bool) {
	if !strings.HasPrefix(id, pagePrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(id[len(pagePrefix):])
	if err != nil {
		return 0, false
	}
	return n, true
}
