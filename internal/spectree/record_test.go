package spectree

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsUint(t *testing.T) {
	cases := []struct {
		in   any
		want uint64
		ok   bool
	}{
		{json.Number("42"), 42, true},
		{json.Number("-1"), 0, false},
		{"256", 256, true},
		{"0x100", 0x100, true},
		{"0XFF", 0xff, true},
		{" 0x10 ", 0x10, true},
		{"zzz", 0, false},
		{"", 0, false},
		{true, 0, false},
		{nil, 0, false},
	}
	for _, tc := range cases {
		got, ok := AsUint(tc.in)
		assert.Equal(t, tc.ok, ok, "input %v", tc.in)
		assert.Equal(t, tc.want, got, "input %v", tc.in)
	}
}

func TestRawString(t *testing.T) {
	assert.Equal(t, "0xFFFC0000", RawString("0xFFFC0000"))
	assert.Equal(t, "262144", RawString(json.Number("262144")))
	assert.Equal(t, "true", RawString(true))
	assert.Equal(t, "", RawString(nil))
}

func TestTruthy(t *testing.T) {
	assert.True(t, Truthy(true))
	assert.True(t, Truthy("yes"))
	assert.True(t, Truthy(json.Number("1")))
	assert.True(t, Truthy(Record{}))

	assert.False(t, Truthy(false))
	assert.False(t, Truthy(""))
	assert.False(t, Truthy(json.Number("0")))
	assert.False(t, Truthy(nil))
}

func TestRecordAccessors(t *testing.T) {
	rec := Record{
		"name":  "uart0",
		"mem":   true,
		"inner": Record{"k": "v"},
		"list":  []any{Record{"name": "a"}, Record{"name": "b"}},
		"names": []any{"x", "y"},
		"mixed": []any{"x", json.Number("1")},
	}

	assert.True(t, rec.Has("name"))
	assert.False(t, rec.Has("nosuch"))

	s, ok := rec.String("name")
	require.True(t, ok)
	assert.Equal(t, "uart0", s)
	_, ok = rec.String("mem")
	assert.False(t, ok, "non-string value")

	b, ok := rec.Bool("mem")
	require.True(t, ok)
	assert.True(t, b)

	inner, ok := rec.Record("inner")
	require.True(t, ok)
	assert.Equal(t, "v", inner["k"])

	recs, ok := rec.Records("list")
	require.True(t, ok)
	assert.Len(t, recs, 2)

	names, ok := rec.Strings("names")
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, names)

	_, ok = rec.Strings("mixed")
	assert.False(t, ok, "non-string element poisons the whole list")
}
