package version

import (
	"testing"

	"github.com/stretchr/testify/assert"

	errpkg "github.com/openlaunch/resource-cache/internal/errors"
)

func TestParseID(t *testing.T) {
	for _, s := range []string{"1", "1.0", "1.4.2", "2.0-beta_1", "V1.0", "15-release"} {
		id, err := ParseID(s)
		assert.NoError(t, err, s)
		assert.Equal(t, s, id.String())
	}
}

func TestParseID_Malformed(t *testing.T) {
	for _, s := range []string{"", ".", "1.", ".1", "1..2", "1.0+", "1.0*", "1.0&2.0", "1 .0"} {
		_, err := ParseID(s)
		assert.ErrorIs(t, err, errpkg.ErrFormat, s)
	}
}

func TestID_Compare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0", "1.0", 0},
		{"1.0", "1.0.0", 0},
		{"1", "1.0.0-0", 0},
		{"1.0", "1.1", -1},
		{"1.1", "1.0", 1},
		{"1.2", "1.10", -1},
		{"1.0.4", "1.0", 1},
		{"1.0-beta", "1.0-alpha", 1},
		{"1.0.0-build42", "1.0.0-build9", -1},
	}
	for _, tt := range tests {
		a := MustParseID(tt.a)
		b := MustParseID(tt.b)
		assert.Equal(t, tt.want, a.Compare(b), "%s vs %s", tt.a, tt.b)
	}
}

func TestID_Matches(t *testing.T) {
	id := MustParseID("1.0")
	assert.True(t, id.Matches("1.0"))
	assert.True(t, id.Matches("1.0.0"))
	assert.False(t, id.Matches("1.0.4"))
	assert.False(t, id.Matches("not a version"))
}

func TestID_IsZero(t *testing.T) {
	assert.True(t, ID{}.IsZero())
	assert.False(t, MustParseID("1").IsZero())
}
