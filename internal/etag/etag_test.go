package etag

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartticket/ticket-api/internal/domain"
)

func sampleTicket() *domain.Ticket {
	created := time.Date(2026, 3, 1, 9, 30, 0, 123456000, time.UTC)
	due := created.Add(72 * time.Hour)
	assigned := created.Add(time.Hour)
	assignee := "5b0d3f55-8a43-4c7a-9a0e-2f59a3c6d201"
	return &domain.Ticket{
		ID:               "0f8fad5b-d9cb-469f-a165-70867728950e",
		Title:            "Printer on fire",
		Description:      "Third floor printer emits smoke",
		Status:           domain.TicketStatusOpen,
		Priority:         domain.TicketPriorityHigh,
		CreatedByUserID:  "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		AssignedToUserID: &assignee,
		CreatedAt:        created,
		DueAt:            &due,
		AssignedAt:       &assigned,
		Version:          3,
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	a := sampleTicket()
	b := sampleTicket()

	require.Equal(t, Compute(a), Compute(b))
	require.Equal(t, Compute(a), Compute(a))
}

func TestComputeFormat(t *testing.T) {
	tag := Compute(sampleTicket())

	require.True(t, strings.HasPrefix(tag, `"`))
	require.True(t, strings.HasSuffix(tag, `"`))
	inner := strings.Trim(tag, `"`)
	// sha256 is 32 bytes, 43 chars of unpadded base64url.
	require.Len(t, inner, 43)
	require.NotContains(t, inner, "=")
	require.NotContains(t, inner, "+")
	require.NotContains(t, inner, "/")
}

func TestComputeNormalizesTimeZone(t *testing.T) {
	a := sampleTicket()
	b := sampleTicket()
	b.CreatedAt = b.CreatedAt.In(time.FixedZone("CET", 3600))

	require.Equal(t, Compute(a), Compute(b))
}

func TestComputeIgnoresRowVersion(t *testing.T) {
	a := sampleTicket()
	b := sampleTicket()
	b.Version = 99

	require.Equal(t, Compute(a), Compute(b))
}

func TestComputeIsSensitiveToEveryTrackedField(t *testing.T) {
	other := "d4a1c2b3-0000-4000-8000-000000000001"
	later := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)

	mutations := map[string]func(*domain.Ticket){
		"id":          func(t *domain.Ticket) { t.ID = other },
		"title":       func(t *domain.Ticket) { t.Title += "!" },
		"description": func(t *domain.Ticket) { t.Description = "" },
		"status": func(t *domain.Ticket) {
			t.Status = domain.TicketStatusClosed
		},
		"priority":   func(t *domain.Ticket) { t.Priority = domain.TicketPriorityLow },
		"created_at": func(t *domain.Ticket) { t.CreatedAt = t.CreatedAt.Add(time.Microsecond) },
		"due_at":     func(t *domain.Ticket) { t.DueAt = nil },
		"closed_at":  func(t *domain.Ticket) { t.ClosedAt = &later },
		"created_by": func(t *domain.Ticket) { t.CreatedByUserID = other },
		"assigned_to": func(t *domain.Ticket) {
			t.AssignedToUserID = &other
		},
		"assigned_at": func(t *domain.Ticket) { t.AssignedAt = &later },
	}
	require.Len(t, mutations, 11)

	base := Compute(sampleTicket())
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			changed := sampleTicket()
			mutate(changed)
			assert.NotEqual(t, base, Compute(changed))
		})
	}
}

func TestComputeDistinguishesFieldBoundaries(t *testing.T) {
	a := sampleTicket()
	a.Title, a.Description = "ab", "c"
	b := sampleTicket()
	b.Title, b.Description = "a", "bc"

	require.NotEqual(t, Compute(a), Compute(b))
}

func TestMatches(t *testing.T) {
	tag := Compute(sampleTicket())

	tests := []struct {
		name   string
		header string
		want   bool
	}{
		{name: "wildcard", header: "*", want: true},
		{name: "wildcard with spaces", header: "  * ", want: true},
		{name: "exact", header: tag, want: true},
		{name: "list", header: `"other", ` + tag, want: true},
		{name: "list with blanks", header: ` , ` + tag + ` ,`, want: true},
		{name: "empty", header: "", want: false},
		{name: "whitespace", header: "   ", want: false},
		{name: "stale", header: `"stale"`, want: false},
		{name: "unquoted", header: strings.Trim(tag, `"`), want: false},
		{name: "case differs", header: strings.ToUpper(tag), want: strings.ToUpper(tag) == tag},
		{name: "weak tag", header: "W/" + tag, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.header, tag))
		})
	}
}
