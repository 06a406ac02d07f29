package numbering

import (
	"testing"
	"time"

	ierr "github.com/ledgerline/ledgerline/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeManual(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain number passes through",
			input: "000042",
			want:  "000042",
		},
		{
			name:  "whitespace is trimmed",
			input: "  000042  ",
			want:  "000042",
		},
		{
			name:  "single draft marker is stripped",
			input: "DRAFT-000042",
			want:  "000042",
		},
		{
			name:  "stacked draft markers are all stripped",
			input: "DRAFT-DRAFT-DRAFT-000042",
			want:  "000042",
		},
		{
			name:  "free text survives",
			input: "LEGACY/2024/7",
			want:  "LEGACY/2024/7",
		},
		{
			name:  "empty input stays empty",
			input: "   ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeManual(tt.input))
		})
	}
}

func TestWrapDraft(t *testing.T) {
	t.Run("wraps a base exactly once", func(t *testing.T) {
		got, err := WrapDraft("000042")
		require.NoError(t, err)
		assert.Equal(t, "DRAFT-000042", got)
	})

	t.Run("rejects an already wrapped number", func(t *testing.T) {
		_, err := WrapDraft("DRAFT-000042")
		require.Error(t, err)
		assert.True(t, ierr.Is(err, ErrDraftMarkerPresent))
	})

	t.Run("rejects an empty base", func(t *testing.T) {
		_, err := WrapDraft("")
		require.Error(t, err)
		assert.True(t, ierr.Is(err, ierr.ErrValidation))
	})

	t.Run("normalize then wrap is stable", func(t *testing.T) {
		got, err := WrapDraft(NormalizeManual("DRAFT-DRAFT-000009"))
		require.NoError(t, err)
		assert.Equal(t, "DRAFT-000009", got)
	})
}

func TestParseSequence(t *testing.T) {
	tests := []struct {
		name   string
		number string
		want   int64
		ok     bool
	}{
		{name: "bare final number", number: "000042", want: 42, ok: true},
		{name: "draft number", number: "DRAFT-000042", want: 42, ok: true},
		{name: "relocated draft keeps its base sequence", number: "DRAFT-000042-1736942400000000000", want: 42, ok: true},
		{name: "relocated final keeps its base sequence", number: "000042-3", want: 42, ok: true},
		{name: "placeholder is never a sequence", number: "TEMP-1736942400000000000", ok: false},
		{name: "legacy free text", number: "LEGACY/2024/7", ok: false},
		{name: "empty", number: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseSequence(tt.number)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestSequenceWidth(t *testing.T) {
	assert.Equal(t, 6, SequenceWidth("000042"))
	assert.Equal(t, 8, SequenceWidth("DRAFT-00000042"))
	assert.Equal(t, 6, SequenceWidth("DRAFT-000042-17"))
	assert.Equal(t, 0, SequenceWidth("LEGACY/2024/7"))
}

func TestFormatSequence(t *testing.T) {
	assert.Equal(t, "000001", FormatSequence(1, 0))
	assert.Equal(t, "000001", FormatSequence(1, 6))
	assert.Equal(t, "00000001", FormatSequence(1, 8))
	// Values wider than the pad are never truncated.
	assert.Equal(t, "1234567", FormatSequence(1234567, 6))
}

func TestPlaceholder(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	p := NewPlaceholder(now)
	assert.True(t, IsPlaceholder(p))
	assert.False(t, IsDraftNumber(p))
	_, ok := ParseSequence(p)
	assert.False(t, ok)

	// Distinct instants yield distinct placeholders.
	assert.NotEqual(t, p, NewPlaceholder(now.Add(time.Nanosecond)))
}

func TestDisambiguate(t *testing.T) {
	got := Disambiguate("DRAFT-000003", 7)
	assert.Equal(t, "DRAFT-000003-7", got)

	// The marker is reused verbatim, never doubled.
	assert.True(t, IsDraftNumber(got))
	assert.Equal(t, "000003-7", StripMarker(got))
	seq, ok := ParseSequence(got)
	require.True(t, ok)
	assert.Equal(t, int64(3), seq)
}
