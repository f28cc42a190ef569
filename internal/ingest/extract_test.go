package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtract_PlainText(t *testing.T) {
	sections, err := Extract("notes.txt", []byte("line one\nline two"))
	require.NoError(t, err)
	require.Len(t, sections, 1)
	require.Equal(t, "line one\nline two", sections[0].Text)
	require.Equal(t, 0, sections[0].Page)
}

func TestExtract_Markdown(t *testing.T) {
	md := "# Dosage\n\nAspirin 325mg.\n\n# Storage\n\nKeep cool."
	sections, err := Extract("guide.md", []byte(md))
	require.NoError(t, err)
	require.Len(t, sections, 2)
	require.Contains(t, sections[0].Text, "Aspirin 325mg.")
	require.Contains(t, sections[1].Text, "Keep cool.")
}

func TestExtract_MarkdownLongExtension(t *testing.T) {
	sections, err := Extract("guide.markdown", []byte("plain body"))
	require.NoError(t, err)
	require.Len(t, sections, 1)
}

func TestExtract_UnsupportedType(t *testing.T) {
	_, err := Extract("image.png", []byte{0x89, 0x50})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported file type")
}

func TestExtract_CaseInsensitiveExtension(t *testing.T) {
	sections, err := Extract("NOTES.TXT", []byte("upper case name"))
	require.NoError(t, err)
	require.Len(t, sections, 1)
}

func TestExtract_BrokenPDF(t *testing.T) {
	_, err := Extract("broken.pdf", []byte("not a pdf at all"))
	require.Error(t, err)
}
