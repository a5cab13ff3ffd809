package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
)

func extract(t *testing.T, src string) (string, error) {
	t.Helper()
	return New().Extract(context.Background(), &domain.RawDocument{
		Filename: "guide.md",
		MIMEType: domain.MIMETypeMarkdown,
		Content:  []byte(src),
	})
}

func TestSupportedMIMETypes(t *testing.T) {
	assert.Contains(t, New().SupportedMIMETypes(), "text/markdown")
}

func TestExtract_StripsFormatting(t *testing.T) {
	src := "# MIT Admissions\n\nThe **deadline** is [January 1](https://mit.edu/apply).\n\n- Essays\n- Test scores\n"

	got, err := extract(t, src)
	require.NoError(t, err)
	assert.Equal(t, "MIT Admissions\n\nThe deadline is January 1.\n\nEssays\n\nTest scores", got)
}

func TestExtract_DropsCodeAndImages(t *testing.T) {
	src := "Intro text.\n\n```go\nfmt.Println(\"x\")\n```\n\n![campus](campus.png)\n\nOutro."

	got, err := extract(t, src)
	require.NoError(t, err)
	assert.Equal(t, "Intro text.\n\nOutro.", got)
}

func TestExtract_SoftBreaksJoinLines(t *testing.T) {
	got, err := extract(t, "first line\nsecond line")
	require.NoError(t, err)
	assert.Equal(t, "first line second line", got)
}

func TestExtract_Tables(t *testing.T) {
	src := "| Year | Tuition |\n| --- | --- |\n| 2025 | $60,500 |\n"

	got, err := extract(t, src)
	require.NoError(t, err)
	assert.Equal(t, "Year | Tuition\n\n2025 | $60,500", got)
}

func TestExtract_EmptyContent(t *testing.T) {
	_, err := extract(t, "```\nonly code\n```")
	assert.ErrorIs(t, err, domain.ErrEmptyContent)
}

func TestExtract_InvalidUTF8(t *testing.T) {
	_, err := New().Extract(context.Background(), &domain.RawDocument{Content: []byte{0xff, 0xfe}})
	assert.ErrorIs(t, err, domain.ErrCorruptInput)
}

func TestExtract_NilDocument(t *testing.T) {
	_, err := New().Extract(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
