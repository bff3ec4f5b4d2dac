package timefmt

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatIsFixedWidthUTC(t *testing.T) {
	loc := time.FixedZone("plus5", 5*3600)
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"whole second", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "2024-01-02T03:04:05.000000000Z"},
		{"nanoseconds", time.Date(2024, 1, 2, 3, 4, 5, 123, time.UTC), "2024-01-02T03:04:05.000000123Z"},
		{"offset converted", time.Date(2024, 1, 2, 8, 4, 5, 0, loc), "2024-01-02T03:04:05.000000000Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.in))
		})
	}
}

func TestFormatSortsLexically(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	times := []time.Time{
		base.Add(500 * time.Millisecond),
		base,
		base.Add(450 * time.Millisecond),
		base.Add(-time.Hour),
		base.Add(time.Nanosecond),
	}
	var stored []string
	for _, tm := range times {
		stored = append(stored, Format(tm))
	}
	sort.Strings(stored)
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	for i, tm := range times {
		assert.Equal(t, Format(tm), stored[i])
	}
}

func TestParseRoundTrip(t *testing.T) {
	in := time.Date(2023, 12, 31, 23, 59, 59, 987654321, time.UTC)
	assert.True(t, in.Equal(Parse(Format(in))))
}

func TestParseAcceptsRFC3339Variants(t *testing.T) {
	want := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for _, s := range []string{
		"2024-03-01T10:00:00Z",
		"2024-03-01T10:00:00+00:00",
		"2024-03-01T12:00:00+02:00",
		"2024-03-01T10:00:00.000000000Z",
	} {
		assert.True(t, want.Equal(Parse(s)), s)
	}
}

func TestParseMalformedFallsBackToNow(t *testing.T) {
	fixed := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return fixed }
	t.Cleanup(func() { nowFunc = time.Now })

	for _, s := range []string{"", "yesterday", "2024-13-45T99:00:00Z"} {
		assert.True(t, fixed.Equal(Parse(s)), "input %q", s)
	}
}

func TestOptionalHelpers(t *testing.T) {
	assert.Nil(t, FormatOptional(nil))
	assert.Nil(t, ParseOptional(nil))

	tm := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := FormatOptional(&tm)
	require.NotNil(t, s)
	back := ParseOptional(s)
	require.NotNil(t, back)
	assert.True(t, tm.Equal(*back))
}
