package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Normalize(t *testing.T) {
	m := Default()

	assert.Equal(t, "PlayStation", m.Normalize("ps5 games"))
	assert.Equal(t, "PlayStation", m.Normalize("  PS5   Games "))
	assert.Equal(t, "Accessories", m.Normalize("Controllers"))
	assert.Equal(t, "Xbox", m.Normalize("xbox"))
	assert.Equal(t, "Retro Consoles", m.Normalize(" Retro Consoles "))
}

func TestDefault_NamesSorted(t *testing.T) {
	names := Default().Names()
	require.NotEmpty(t, names)
	for i := 1; i < len(names); i++ {
		assert.LessOrEqual(t, names[i-1], names[i])
	}
}

func TestParse_RejectsConflictingAlias(t *testing.T) {
	_, err := Parse([]byte(`
categories:
  - name: A
    aliases: [shared]
  - name: B
    aliases: [shared]
`))
	require.Error(t, err)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "pc-gaming", Slug(" PC  Gaming "))
}
