package assessment

import (
	"math"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextSequential(t *testing.T) {
	tests := []struct {
		name string
		last string
		want string
	}{
		{"empty store", "", "R-001"},
		{"after R-007", "R-007", "R-008"},
		{"after R-008", "R-008", "R-009"},
		{"carry", "R-099", "R-100"},
		{"past 999", "R-999", "R-1000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextSequential(tt.last)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextSequential_Malformed(t *testing.T) {
	_, err := NextSequential("RC-ABCDEF12")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NextSequential("R-x1")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDerivedFromSession(t *testing.T) {
	assert.Equal(t, "RC-ABCDEF12", DerivedFromSession("abcdef1234"))
	assert.Equal(t, "RC-AB", DerivedFromSession("ab"))

	got := DerivedFromSession("ééééééééé")
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "RC-ÉÉÉÉÉÉÉÉ", got)
	assert.True(t, ValidIdentifier(got))
}

func TestPageRequest_Normalize(t *testing.T) {
	p := PageRequest{}.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPageSize, p.PageSize)
	assert.Zero(t, p.Offset())

	p = PageRequest{Page: 3, PageSize: 500}.Normalize()
	assert.Equal(t, MaxPageSize, p.PageSize)
	assert.Equal(t, 200, p.Offset())

	p = PageRequest{Page: math.MaxInt, PageSize: 20}.Normalize()
	assert.Positive(t, p.Offset())
	assert.LessOrEqual(t, p.Offset(), math.MaxInt32)
}

func TestStrategyFor(t *testing.T) {
	assert.Equal(t, StrategySequential, StrategyFor(KindRisk))
	assert.Equal(t, StrategyDerivedFromSession, StrategyFor(KindRiskControl))
	assert.Equal(t, "derived", StrategyDerivedFromSession.String())
}

func TestValidIdentifier(t *testing.T) {
	assert.True(t, ValidIdentifier("R-001"))
	assert.True(t, ValidIdentifier("RC-ABCDEF12"))
	assert.False(t, ValidIdentifier("RC-"))
	assert.False(t, ValidIdentifier("RC-abc"))
	assert.False(t, ValidIdentifier("X-001"))
	assert.False(t, ValidIdentifier(""))
}

func TestDropHeaderRow(t *testing.T) {
	in := []ParsedControl{{Code: "CODE"}, {Code: "AC-001"}, {Code: "DM-001"}}
	out := DropHeaderRow(in)
	require.Len(t, out, 2)
	assert.Equal(t, "AC-001", out[0].Code)
	assert.Len(t, in, 3, "input must not be modified")

	assert.Empty(t, DropHeaderRow([]ParsedControl{{Code: "AC-001"}}))
	assert.Empty(t, DropHeaderRow(nil))
}
