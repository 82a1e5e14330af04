package service

import (
	"fmt"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/smartticket/ticket-api/internal/domain"
	apperrors "github.com/smartticket/ticket-api/pkg/util/errorutil"
)

const (
	titleMinLength       = 3
	titleMaxLength       = 100
	descriptionMinLength = 3
	descriptionMaxLength = 2000
	commentMaxLength     = 2000
	maxAttachmentURLs    = 10

	// dueDateTolerance absorbs client clock skew when a due date is set
	// to "now".
	dueDateTolerance = time.Minute
)

func validateLength(field, value string, minLen, maxLen int) error {
	n := utf8.RuneCountInString(value)
	if n < minLen || n > maxLen {
		return apperrors.NewValidationError(
			fmt.Sprintf("%s must be between %d and %d characters", field, minLen, maxLen),
			map[string]any{"field": field, "length": n},
		)
	}
	return nil
}

func validateTitle(title string) error {
	return validateLength("title", title, titleMinLength, titleMaxLength)
}

func validateDescription(description string) error {
	return validateLength("description", description, descriptionMinLength, descriptionMaxLength)
}

func validateCommentText(text string) error {
	return validateLength("text", text, 1, commentMaxLength)
}

func validatePriority(p domain.TicketPriority) error {
	if !p.IsValid() {
		return apperrors.NewValidationError("priority is not valid", map[string]any{
			"field":   "priority",
			"allowed": []domain.TicketPriority{"VeryLow", "Low", "Medium", "High", "VeryHigh"},
		})
	}
	return nil
}

func validateDueDate(dueAt, now time.Time) error {
	if dueAt.IsZero() {
		return apperrors.NewValidationError("due_at is required", map[string]any{"field": "due_at"})
	}
	if dueAt.Before(now.Add(-dueDateTolerance)) {
		return apperrors.NewValidationError("due_at must not be in the past", map[string]any{"field": "due_at"})
	}
	return nil
}

func validateAttachmentURLs(urls []string) error {
	if len(urls) > maxAttachmentURLs {
		return apperrors.NewValidationError(
			fmt.Sprintf("at most %d attachments are allowed", maxAttachmentURLs),
			map[string]any{"field": "attachment_urls"},
		)
	}
	for _, u := range urls {
		if strings.TrimSpace(u) == "" {
			return apperrors.NewValidationError("attachment url must not be blank", map[string]any{"field": "attachment_urls"})
		}
	}
	return nil
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// canonicalID parses s as a uuid and renders it in the lower-case hyphenated
// form the stores return, so ids compare and hash the same way whichever
// spelling the caller used.
func canonicalID(s string) (string, bool) {
	parsed, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

// contentTypeFor derives a MIME type from the file extension of name.
func contentTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	}
	return "application/octet-stream"
}

// fileNameFromURL returns the last path segment of a URL, ignoring any
// query string or fragment.
func fileNameFromURL(raw string) string {
	trimmed := raw
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	return path.Base(strings.TrimRight(trimmed, "/"))
}
