package ingest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFloat(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want *float64
	}{
		{"placeholder dashes", "--", nil},
		{"placeholder star", "*", nil},
		{"empty", "", nil},
		{"nil", nil, nil},
		{"html wrapped", `<span title="x">12.34</span>`, ptr(12.34)},
		{"bare tag pair", ">12.34<", ptr(12.34)},
		{"negative in tag", "<b>-0.5</b>", ptr(-0.5)},
		{"plain number", "7.1", ptr(7.1)},
		{"padded number", " 8.25 ", ptr(8.25)},
		{"garbage", "abc", nil},
		{"not available", "N/A", nil},
		{"nan is not a measurement", "NaN", nil},
		{"json number", json.Number("3.5"), ptr(3.5)},
		{"float", 2.0, ptr(2.0)},
		{"int", 4, ptr(4.0)},
		{"bool", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractFloat(tt.raw)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestParseFragment(t *testing.T) {
	got, ok := ParseFragment("03-15 08:00", "2023")
	require.True(t, ok)
	assert.Equal(t, time.Date(2023, 3, 15, 8, 0, 0, 0, time.UTC), got)

	got, ok = ParseFragment("3-5 18:30", "2024")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 5, 18, 30, 0, 0, time.UTC), got)

	invalid := []struct {
		fragment, year string
	}{
		{"99-99 99:99", "2023"},
		{"02-30 08:00", "2023"},
		{"03/15 08:00", "2023"},
		{"03-15", "2023"},
		{"", "2023"},
		{"03-15 08:00", ""},
		{"03-15 08:00", "23"},
		{"03-15 08:00", "abcd"},
	}
	for _, tt := range invalid {
		_, ok := ParseFragment(tt.fragment, tt.year)
		assert.False(t, ok, "fragment %q year %q", tt.fragment, tt.year)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2023-03-01 08:00", time.Date(2023, 3, 1, 8, 0, 0, 0, time.UTC)},
		{"2023-03-01 08:00:30", time.Date(2023, 3, 1, 8, 0, 30, 0, time.UTC)},
		{"2023/3/1 8:00", time.Date(2023, 3, 1, 8, 0, 0, 0, time.UTC)},
		{"2023-03-01T08:00:00+08:00", time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"2023-03-01", time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"44986.5", time.Date(2023, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseTimestamp(tt.in)
			require.True(t, ok)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	for _, in := range []string{"", "03-01 08:00", "yesterday"} {
		_, ok := ParseTimestamp(in)
		assert.False(t, ok, in)
	}
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "A断面", StripHTML(`<span title="A">A断面</span>`))
	assert.Equal(t, "古北口", StripHTML(`<a href="#"> 古北口 </a>`))
	assert.Equal(t, "plain", StripHTML("  plain "))
	assert.Equal(t, "", StripHTML(""))
}

func ptr(f float64) *float64 {
	return &f
}
