package textextract

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPlainText(t *testing.T) {
	text, err := Extract("notes.txt", []byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestExtractUnknownExtensionDecodesAsText(t *testing.T) {
	text, err := Extract("data.bin", []byte("still just text"))
	require.NoError(t, err)
	assert.Equal(t, "still just text", text)
}

func TestExtractLatin1Fallback(t *testing.T) {
	// 0xE9 is é in Latin-1 and invalid as a standalone UTF-8 byte.
	text, err := Extract("legacy.txt", []byte{'c', 'a', 'f', 0xE9})
	require.NoError(t, err)
	assert.Equal(t, "café", text)
}

func TestExtractUTF8Preserved(t *testing.T) {
	text, err := Extract("utf8.txt", []byte("naïve — résumé"))
	require.NoError(t, err)
	assert.Equal(t, "naïve — résumé", text)
}

func TestExtractCorruptPDF(t *testing.T) {
	_, err := Extract("broken.pdf", []byte("this is not a pdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtractCorruptDOCX(t *testing.T) {
	_, err := Extract("broken.docx", []byte("this is not a zip archive"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtractDOCX(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0"?><w:document><w:body><w:p><w:r><w:t>Hello</w:t></w:r><w:r><w:t>from docx</w:t></w:r></w:p></w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	text, err := Extract("report.docx", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Hello from docx", text)
}

func TestExtractDOCXWithoutDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/styles.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<styles/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = Extract("odd.docx", buf.Bytes())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtractCaseInsensitiveExtension(t *testing.T) {
	_, err := Extract("UPPER.PDF", []byte("junk"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
