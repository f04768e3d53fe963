package extract

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeDocx(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0"?><Types/>`))
	require.NoError(t, err)
	w, err = zw.Create(docxBodyPart)
	require.NoError(t, err)
	_, err = w.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

const sampleDocument = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Quarterly</w:t></w:r><w:r><w:t xml:space="preserve"> report</w:t></w:r></w:p>
<w:p><w:r><w:t>Revenue</w:t><w:tab/><w:t>42</w:t><w:br/><w:t>Costs</w:t></w:r></w:p>
</w:body>
</w:document>`

func newExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := New(context.Background())
	require.NoError(t, err)
	return e
}

func TestDetect(t *testing.T) {
	cases := []struct {
		path string
		mime string
		want Format
	}{
		{"data.csv", "text/csv", FormatCSV},
		{"data.csv", "text/plain", FormatCSV},
		{"data.CSV", "text/plain; charset=utf-8", FormatCSV},
		{"report.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", FormatDOCX},
		{"report.docx", "application/octet-stream", FormatDOCX},
		{"notes.txt", "text/plain", FormatText},
		{"notes", "TEXT/PLAIN", FormatText},
		{"notes.txt", "application/octet-stream", FormatText},
		{"page.html", "application/octet-stream", FormatHTML},
		{"page", "text/html; charset=utf-8", FormatHTML},
		{"readme.md", "", FormatMarkdown},
	}
	for _, tc := range cases {
		got, err := Detect(tc.path, tc.mime)
		require.NoError(t, err, "%s %s", tc.path, tc.mime)
		require.Equal(t, tc.want, got, "%s %s", tc.path, tc.mime)
	}
}

func TestDetectCSVOrderBeatsPlainText(t *testing.T) {
	// a .txt suffix with text/csv still routes to csv
	got, err := Detect("export.txt", "text/csv")
	require.NoError(t, err)
	require.Equal(t, FormatCSV, got)
}

func TestDetectUnsupported(t *testing.T) {
	for _, tc := range [][2]string{
		{"paper.pdf", "application/pdf"},
		{"blob", "application/octet-stream"},
		{"table.csv", "application/octet-stream"},
	} {
		_, err := Detect(tc[0], tc[1])
		require.ErrorIs(t, err, ErrUnsupportedFormat)
	}
}

func TestExtractPlainText(t *testing.T) {
	path := writeFile(t, "hello.txt", "Hello\nWorld")
	text, err := newExtractor(t).Extract(context.Background(), path, "text/plain")
	require.NoError(t, err)
	require.Equal(t, "Hello\nWorld", text)
}

func TestExtractMarkdownAsText(t *testing.T) {
	path := writeFile(t, "readme.md", "# Title\n\nbody")
	text, err := newExtractor(t).Extract(context.Background(), path, "text/markdown")
	require.NoError(t, err)
	require.Equal(t, "# Title\n\nbody", text)
}

func TestExtractCSV(t *testing.T) {
	path := writeFile(t, "people.csv", "name,age\nAda,36\nAlan,41\n")
	text, err := newExtractor(t).Extract(context.Background(), path, "text/csv")
	require.NoError(t, err)
	require.Equal(t, "name: Ada, age: 36\nname: Alan, age: 41", text)
}

func TestExtractCSVHeaderOnly(t *testing.T) {
	path := writeFile(t, "empty.csv", "name,age\n")
	text, err := newExtractor(t).Extract(context.Background(), path, "text/csv")
	require.NoError(t, err)
	require.Equal(t, "", text)
}

func TestExtractCSVRaggedRows(t *testing.T) {
	path := writeFile(t, "ragged.csv", "name,age,city\nAda,36\nAlan,41,London,extra\n")
	text, err := newExtractor(t).Extract(context.Background(), path, "text/csv")
	require.NoError(t, err)
	require.Equal(t, "name: Ada, age: 36\nname: Alan, age: 41, city: London", text)
}

func TestExtractCSVMalformed(t *testing.T) {
	path := writeFile(t, "broken.csv", "a,b\n\"1,2\n")
	_, err := newExtractor(t).Extract(context.Background(), path, "text/csv")
	var extErr *ExtractionError
	require.True(t, errors.As(err, &extErr))
	require.Equal(t, FormatCSV, extErr.Format)
}

func TestExtractDOCX(t *testing.T) {
	path := writeDocx(t, "report.docx", sampleDocument)
	text, err := newExtractor(t).Extract(context.Background(), path, "application/octet-stream")
	require.NoError(t, err)
	require.Equal(t, "Quarterly report\n\nRevenue\t42\nCosts", text)
}

func TestExtractDOCXMalformedContainer(t *testing.T) {
	path := writeFile(t, "fake.docx", "not a zip archive")
	_, err := newExtractor(t).Extract(context.Background(), path, "")
	var extErr *ExtractionError
	require.ErrorAs(t, err, &extErr)
	require.Equal(t, FormatDOCX, extErr.Format)
}

func TestExtractHTML(t *testing.T) {
	page := `<html><head><title>T</title><style>p{color:red}</style></head>
<body><h1>Heading</h1><script>alert(1)</script><p>First   paragraph</p></body></html>`
	path := writeFile(t, "page.html", page)
	text, err := newExtractor(t).Extract(context.Background(), path, "text/html")
	require.NoError(t, err)
	require.Equal(t, "T\nHeading\nFirst paragraph", text)
	require.NotContains(t, text, "alert")
	require.NotContains(t, text, "color:red")
}

func TestExtractMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.txt")
	_, err := newExtractor(t).Extract(context.Background(), path, "text/plain")
	var extErr *ExtractionError
	require.ErrorAs(t, err, &extErr)
	require.Equal(t, FormatText, extErr.Format)
}

func TestExtractDoesNotTouchSource(t *testing.T) {
	path := writeFile(t, "keep.txt", "content")
	_, err := newExtractor(t).Extract(context.Background(), path, "text/plain")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "content", string(data))
}
