package alert

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBellRingsOnRisingEdgeOnly(t *testing.T) {
	var out strings.Builder
	b := NewBell(&out)

	b.SetActive(false)
	assert.Empty(t, out.String())

	b.SetActive(true)
	assert.Equal(t, "\a", out.String())

	// Held active, no repeat ring.
	b.SetActive(true)
	b.SetActive(true)
	assert.Equal(t, "\a", out.String())

	b.SetActive(false)
	b.SetActive(true)
	assert.Equal(t, "\a\a", out.String())
}
