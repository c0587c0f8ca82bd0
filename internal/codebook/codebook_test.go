package codebook

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/lumalink/internal/signal"
)

const sample = `
# office doors
front-door = 1100
lab_2 = 10110011
`

func TestParse(t *testing.T) {
	book, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Name: "front-door", Code: "1100"},
		{Name: "lab_2", Code: "10110011"},
	}, book.Entries())

	code, ok := book.Lookup("lab_2")
	assert.True(t, ok)
	assert.Equal(t, "10110011", code)
	_, ok = book.Lookup("missing")
	assert.False(t, ok)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"no separator": "door 1100",
		"bad name":     "Door = 1100",
		"bad code":     "door = 1102",
		"duplicate":    "door = 1\ndoor = 0",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(input))
			assert.Error(t, err)
		})
	}

	_, err := Parse(strings.NewReader("\n\ndoor = 12"))
	require.Error(t, err)
	assert.ErrorIs(t, err, signal.ErrInvalidCodeFormat)
	assert.Contains(t, err.Error(), "line 3")
}

func TestResolve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.txt")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	code, err := Resolve("@front-door", path)
	require.NoError(t, err)
	assert.Equal(t, "1100", code)

	code, err = Resolve("0101", filepath.Join(t.TempDir(), "absent.txt"))
	require.NoError(t, err)
	assert.Equal(t, "0101", code)

	_, err = Resolve("@nope", path)
	assert.ErrorIs(t, err, ErrUnknownName)

	_, err = Resolve("@front-door", filepath.Join(t.TempDir(), "absent.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
