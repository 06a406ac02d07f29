package numbering

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	ierr "github.com/ledgerline/ledgerline/internal/errors"
)

const (
	// DraftMarker prefixes every number in the draft namespace.
	DraftMarker = "DRAFT-"

	// PlaceholderMarker prefixes the transient number that vacates a unique
	// index slot during a draft/final transition. Placeholders belong to
	// neither namespace and are excluded from every sequence scan.
	PlaceholderMarker = "TEMP-"

	// MinSequenceWidth is the floor zero-padding width of generated numbers.
	MinSequenceWidth = 6
)

// leadingSequenceRe captures the numeric run a number starts with, with an
// optional rename disambiguator behind it.
var leadingSequenceRe = regexp.MustCompile(`^(\d+)(-\d+)?$`)

// IsDraftNumber reports whether the stored number belongs to the draft
// namespace.
func IsDraftNumber(number string) bool {
	return strings.HasPrefix(number, DraftMarker)
}

// IsPlaceholder reports whether the stored number is a transition placeholder.
func IsPlaceholder(number string) bool {
	return strings.HasPrefix(number, PlaceholderMarker)
}

// NormalizeManual cleans a user-supplied number: whitespace is trimmed and
// any leading draft markers are stripped, however many times the user (or a
// retried request) stacked them. The returned base is what the engine wraps
// exactly once for the draft namespace.
func NormalizeManual(number string) string {
	number = strings.TrimSpace(number)
	for strings.HasPrefix(number, DraftMarker) {
		number = strings.TrimPrefix(number, DraftMarker)
	}
	return number
}

// WrapDraft applies the draft marker to a base number exactly once. A base
// that already carries the marker is rejected, never re-wrapped: the
// DRAFT-DRAFT- bug class is unrepresentable through this function.
func WrapDraft(base string) (string, error) {
	if base == "" {
		return "", ierr.NewError("cannot wrap an empty number").
			Mark(ierr.ErrValidation)
	}
	if strings.HasPrefix(base, DraftMarker) {
		return "", ierr.NewError("number already carries the draft marker").
			WithReportableDetails(map[string]any{
				"number": base,
			}).
			Mark(ErrDraftMarkerPresent)
	}
	return DraftMarker + base, nil
}

// StripMarker removes a single draft marker, returning the base number.
func StripMarker(number string) string {
	return strings.TrimPrefix(number, DraftMarker)
}

// ParseSequence extracts the sequence integer from a stored number,
// stripping the draft marker if present. A relocated number keeps reporting
// its original base sequence (the disambiguator is ignored). Legacy
// free-text numbers report false and are skipped by the sequence scan.
func ParseSequence(number string) (int64, bool) {
	if IsPlaceholder(number) {
		return 0, false
	}
	base := StripMarker(number)
	m := leadingSequenceRe.FindStringSubmatch(base)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// SequenceWidth returns the digit width of a stored number's sequence, or 0
// when the number has no parseable sequence.
func SequenceWidth(number string) int {
	base := StripMarker(number)
	m := leadingSequenceRe.FindStringSubmatch(base)
	if m == nil {
		return 0
	}
	return len(m[1])
}

// FormatSequence renders a sequence value zero-padded to the given width,
// never narrower than MinSequenceWidth.
func FormatSequence(n int64, width int) string {
	if width < MinSequenceWidth {
		width = MinSequenceWidth
	}
	return fmt.Sprintf("%0*d", width, n)
}

// NewPlaceholder builds a transient placeholder number from the given
// instant. Nanosecond resolution keeps concurrent transitions from colliding
// on the placeholder itself.
func NewPlaceholder(now time.Time) string {
	return fmt.Sprintf("%s%d", PlaceholderMarker, now.UnixNano())
}

// Disambiguate appends a monotonic disambiguator to a relocated number. The
// stored number is reused verbatim, marker included, so relocation can never
// stack a second marker onto it.
func Disambiguate(number string, n int64) string {
	return fmt.Sprintf("%s-%d", number, n)
}
