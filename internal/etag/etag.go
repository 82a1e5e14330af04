// Package etag derives strong HTTP entity tags from ticket state and
// evaluates If-Match preconditions against them.
package etag

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"time"

	"github.com/smartticket/ticket-api/internal/domain"
)

// Wildcard matches any current representation.
const Wildcard = "*"

// roundTripLayout renders UTC instants with 100ns precision, matching
// the ISO-8601 round-trip format.
const roundTripLayout = "2006-01-02T15:04:05.0000000Z"

// Compute fingerprints every client-visible mutable attribute of t. Two
// reads of the same logical state produce byte-identical tags.
func Compute(t *domain.Ticket) string {
	canonical := strings.Join([]string{
		t.ID,
		t.Title,
		t.Description,
		string(t.Status),
		string(t.Priority),
		formatTime(&t.CreatedAt),
		formatTime(t.DueAt),
		formatTime(t.ClosedAt),
		t.CreatedByUserID,
		derefString(t.AssignedToUserID),
		formatTime(t.AssignedAt),
	}, "|")

	sum := sha256.Sum256([]byte(canonical))
	return `"` + base64.RawURLEncoding.EncodeToString(sum[:]) + `"`
}

// Matches reports whether an If-Match header value is satisfied by the
// expected tag. Comparison is ordinal. An empty header never matches.
func Matches(ifMatch, expected string) bool {
	header := strings.TrimSpace(ifMatch)
	if header == "" {
		return false
	}
	if header == Wildcard {
		return true
	}
	for _, part := range strings.Split(header, ",") {
		candidate := strings.TrimSpace(part)
		if candidate == "" {
			continue
		}
		if candidate == expected {
			return true
		}
	}
	return false
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(roundTripLayout)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
