package document

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTempFile(t *testing.T, name string, content []byte) string {
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	return path
}

// createTempPDF 生成PDF，每个元素对应一页，空字符串表示空白页
func createTempPDF(t *testing.T, pages ...string) string {
	path := filepath.Join(t.TempDir(), "sample.pdf")

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	for _, text := range pages {
		pdf.AddPage()
		if text != "" {
			pdf.Cell(40, 10, text)
		}
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		t.Fatalf("Failed to write PDF: %v", err)
	}
	return path
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		path     string
		expected ContentType
	}{
		{"report.pdf", PDF},
		{"REPORT.PDF", PDF},
		{"notes.txt", PlainText},
		{"readme.md", PlainText},
		{"no-extension", PlainText},
		{"image.png", PlainText},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, DetectContentType(tt.path), tt.path)
	}
}

func TestPlainTextExtractor(t *testing.T) {
	t.Run("valid utf8", func(t *testing.T) {
		content := "Hello, this is a plain text file.\nSecond line."
		file := createTempFile(t, "plain.txt", []byte(content))

		text, err := NewPlainTextExtractor().Extract(file)
		require.NoError(t, err)
		assert.Equal(t, content, text)
	})

	t.Run("invalid bytes are dropped", func(t *testing.T) {
		file := createTempFile(t, "broken.txt", []byte("abc\xff\xfedef"))

		text, err := NewPlainTextExtractor().Extract(file)
		require.NoError(t, err)
		assert.Equal(t, "abcdef", text)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewPlainTextExtractor().Extract(filepath.Join(t.TempDir(), "missing.txt"))
		assert.Error(t, err)
	})
}

func TestJoinPages(t *testing.T) {
	assert.Equal(t, "Hello\n\n", JoinPages([]string{"Hello", ""}))
	assert.Equal(t, "", JoinPages(nil))
	assert.Equal(t, "a\nb\n", JoinPages([]string{"a", "b"}))
}

func TestPDFExtractor(t *testing.T) {
	t.Run("pages in order", func(t *testing.T) {
		file := createTempPDF(t, "Hello", "", "World")

		text, err := NewPDFExtractor().Extract(file)
		require.NoError(t, err)
		assert.Contains(t, text, "Hello")
		assert.Contains(t, text, "World")
		assert.Less(t, strings.Index(text, "Hello"), strings.Index(text, "World"))
	})

	t.Run("blank page yields empty text", func(t *testing.T) {
		file := createTempPDF(t, "Hello", "")

		text, err := NewPDFExtractor().Extract(file)
		require.NoError(t, err)
		assert.Equal(t, "Hello\n\n", text)
	})

	t.Run("three pages", func(t *testing.T) {
		file := createTempPDF(t, "Hello", "", "World")

		text, err := NewPDFExtractor().Extract(file)
		require.NoError(t, err)
		assert.Equal(t, "Hello\n\nWorld\n", text)
	})

	t.Run("corrupt file", func(t *testing.T) {
		file := createTempFile(t, "corrupt.pdf", []byte("this is not a pdf"))

		_, err := NewPDFExtractor().Extract(file)
		assert.Error(t, err)
	})

	t.Run("truncated file", func(t *testing.T) {
		data, err := os.ReadFile(createTempPDF(t, "Hello"))
		require.NoError(t, err)
		file := createTempFile(t, "truncated.pdf", data[:len(data)/2])

		_, err = NewPDFExtractor().Extract(file)
		assert.Error(t, err)
	})
}

func TestNewExtractor(t *testing.T) {
	txtFile := createTempFile(t, "notes.txt", []byte("plain text"))
	pdfFile := createTempPDF(t, "PDF content")
	binFile := createTempFile(t, "image.png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01"))

	t.Run("text policy decodes everything", func(t *testing.T) {
		ext, err := NewExtractor(binFile, PolicyText)
		require.NoError(t, err)
		assert.IsType(t, &PlainTextExtractor{}, ext)

		ext, err = NewExtractor(pdfFile, PolicyText)
		require.NoError(t, err)
		assert.IsType(t, &PDFExtractor{}, ext)
	})

	t.Run("skip policy rejects binary", func(t *testing.T) {
		_, err := NewExtractor(binFile, PolicySkip)
		assert.True(t, errors.Is(err, ErrUnsupported))

		ext, err := NewExtractor(txtFile, PolicySkip)
		require.NoError(t, err)
		text, err := ext.Extract(txtFile)
		require.NoError(t, err)
		assert.Equal(t, "plain text", text)
	})

	t.Run("skip policy keeps pdf", func(t *testing.T) {
		ext, err := NewExtractor(pdfFile, PolicySkip)
		require.NoError(t, err)
		assert.IsType(t, &PDFExtractor{}, ext)
	})
}
