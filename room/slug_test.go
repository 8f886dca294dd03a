package room

import (
	"math/rand"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var slugPattern = regexp.MustCompile(`^[a-z]+(-[a-z]+){2,3}$`)

func TestGenerateSlugFormat(t *testing.T) {
	g := NewSlugGenerator(rand.New(rand.NewSource(1)))
	none := func(string) bool { return false }
	for i := 0; i < 100; i++ {
		slug := g.Generate(none)
		assert.Regexp(t, slugPattern, slug)
	}
}

func TestGenerateRetriesOnCollision(t *testing.T) {
	g := NewSlugGenerator(rand.New(rand.NewSource(1)))
	first := g.Generate(func(string) bool { return false })

	attempts := 0
	slug := g.Generate(func(s string) bool {
		attempts++
		return attempts == 1 || s == first
	})
	require.NotEqual(t, first, slug)
	assert.GreaterOrEqual(t, attempts, 2)
}
