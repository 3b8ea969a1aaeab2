package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrontmatter(t *testing.T) {
	t.Run("component with frontmatter", func(t *testing.T) {
		content := "---\nid: atom-check-credit\ntype: atom\ntitle: Check Credit\nversion: 1.2.0\ntags:\n  - credit\nreviewer: ops\n---\n\n# Check Credit\n\nPull the report.\n"

		fm, body, err := ParseFrontmatter(content)

		require.NoError(t, err)
		require.NotNil(t, fm)
		assert.Equal(t, "atom-check-credit", fm.ID)
		assert.Equal(t, "atom", fm.Type)
		assert.Equal(t, "1.2.0", fm.Version)
		assert.Equal(t, []string{"credit"}, fm.Tags)
		assert.Equal(t, "ops", fm.Extra["reviewer"])
		assert.Equal(t, "# Check Credit\n\nPull the report.\n", body)
	})

	t.Run("no frontmatter", func(t *testing.T) {
		fm, body, err := ParseFrontmatter("# Plain\n")

		require.NoError(t, err)
		assert.Nil(t, fm)
		assert.Equal(t, "# Plain\n", body)
	})

	t.Run("unterminated header", func(t *testing.T) {
		_, _, ok := SplitFrontmatter("---\nid: x\n# body")
		assert.False(t, ok)
	})

	t.Run("windows line endings", func(t *testing.T) {
		header, body, ok := SplitFrontmatter("---\r\nid: x\r\n---\r\nbody\r\n")

		require.True(t, ok)
		assert.Equal(t, "id: x", header)
		assert.Equal(t, "body\n", body)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, _, err := ParseFrontmatter("---\nid: [unclosed\n---\nbody")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse frontmatter")
	})
}
