package room

import (
	"math/rand"
	"strings"

	"github.com/folkengine/goname"
)

// SlugGenerator produces the human-readable room addresses, 3-4 lowercase words
// joined by hyphens, drawn from the goname fantasy corpus.
type SlugGenerator struct {
	rand *rand.Rand
}

func NewSlugGenerator(rnd *rand.Rand) *SlugGenerator {
	return &SlugGenerator{rand: rnd}
}

// Generate returns a slug that is not claimed according to taken. Collisions are
// retried indefinitely, with a corpus this size they are practically impossible.
func (g *SlugGenerator) Generate(taken func(string) bool) string {
	for {
		slug := g.randomSlug()
		if !taken(slug) {
			return slug
		}
	}
}

func (g *SlugGenerator) randomSlug() string {
	n := 3
	if g.rand.Intn(2) == 1 {
		n = 4
	}
	parts := make([]string, 0, n)
	for len(parts) < n {
		for _, w := range strings.Fields(goname.New(goname.FantasyMap).FirstLast()) {
			if w = sanitizeWord(w); w != "" && len(parts) < n {
				parts = append(parts, w)
			}
		}
	}
	return strings.Join(parts, "-")
}

// sanitizeWord lowercases a corpus word and strips everything outside a-z, so
// slugs stay valid URL path segments.
func sanitizeWord(word string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(word) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
