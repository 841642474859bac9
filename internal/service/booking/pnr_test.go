package booking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeneratePNR(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		pnr := GeneratePNR()
		assert.Len(t, pnr, 6)
		for _, c := range pnr {
			assert.True(t, strings.ContainsRune(pnrAlphabet, c), "unexpected character %q in %s", c, pnr)
		}
		// The alphabet drops lookalikes.
		assert.NotContains(t, pnr, "0")
		assert.NotContains(t, pnr, "O")
		assert.NotContains(t, pnr, "1")
		assert.NotContains(t, pnr, "I")
		seen[pnr] = true
	}
	// 200 draws from a 32^6 space should essentially never collide.
	assert.Greater(t, len(seen), 190)
}
