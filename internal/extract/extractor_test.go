package extract

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/kiku/internal/models"
)

func TestExtractBytes_plain(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		ext     string
		want    string
	}{
		{"text", []byte("Hello world\nLine 2"), ".txt", "Hello world\nLine 2"},
		{"utf8", []byte("caf\xc3\xa9"), ".md", "café"},
		{"invalid utf8", []byte("hello\x80world"), ".txt", "hello\uFFFDworld"},
		{"bom and crlf", []byte("\xEF\xBB\xBFrow 1\r\nrow 2\r\n"), ".txt", "row 1\nrow 2\n"},
		{"unknown extension", []byte("raw content"), ".xyz", "raw content"},
	}
	e := NewExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.ExtractBytes(tt.content, tt.ext)
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractBytes_excel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Title")
	f.SetCellValue("Sheet1", "A2", "Value 1")
	f.SetCellValue("Sheet1", "B2", "Value 2")
	f.SetCellValue("Sheet1", "A4", "After blank row")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	got, err := NewExtractor().ExtractBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Title\nValue 1\tValue 2\nAfter blank row" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_files(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "test.TXT")
	if err := os.WriteFile(txt, []byte("File content"), 0600); err != nil {
		t.Fatal(err)
	}
	xlsx := filepath.Join(dir, "vagas.xlsx")
	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "Para curso A temos vagas:30")
	if err := f.SaveAs(xlsx); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	e := NewExtractor()
	for path, want := range map[string]string{txt: "File content", xlsx: "Para curso A temos vagas:30"} {
		got, err := e.Extract(path)
		if err != nil {
			t.Fatalf("Extract(%s): %v", path, err)
		}
		if got != want {
			t.Errorf("Extract(%s) = %q, want %q", path, got, want)
		}
	}
}

func TestExtract_nonexistent(t *testing.T) {
	if _, err := NewExtractor().Extract("/nonexistent/path/file.txt"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

// docxWith returns .docx bytes whose body part is docPath, optionally declared in [Content_Types].xml.
func docxWith(t *testing.T, docPath, contentTypes, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	if contentTypes != "" {
		ct, _ := w.Create(contentTypesPath)
		_, _ = ct.Write([]byte(contentTypes))
	}
	fw, _ := w.Create(docPath)
	_, _ = fw.Write([]byte(`<w:document ` + wordNS + `><w:body>` + body + `</w:body></w:document>`))
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractBytes_docxParagraphs(t *testing.T) {
	body := `<w:p w:rsidR="00A1"><w:pPr><w:jc w:val="left"/></w:pPr><w:r><w:t>O vestibular </w:t></w:r><w:r><w:t xml:space="preserve">tem duas fases.</w:t></w:r></w:p>` +
		`<w:p/>` +
		`<w:p><w:r><w:t>Notas &amp; pesos</w:t></w:r></w:p>`
	got, err := NewExtractor().ExtractBytes(docxWith(t, docxDefaultBody, "", body), ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	want := "O vestibular tem duas fases.\n\nNotas & pesos"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractBytes_docxContentTypes(t *testing.T) {
	body := `<w:p><w:r><w:t>Content from custom part</w:t></w:r></w:p>`
	orders := map[string]string{
		"part name first":    `<Override PartName="/word/document2.xml" ContentType="` + docxMainContentType + `"/>`,
		"content type first": `<Override ContentType="` + docxMainContentType + `" PartName="/word/document2.xml"/>`,
	}
	for name, override := range orders {
		t.Run(name, func(t *testing.T) {
			ct := `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` + override + `</Types>`
			got, err := NewExtractor().ExtractBytes(docxWith(t, "word/document2.xml", ct, body), ".docx")
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if got != "Content from custom part" {
				t.Errorf("got %q", got)
			}
		})
	}
}

func TestExtractBytes_docxErrors(t *testing.T) {
	e := NewExtractor()
	if _, err := e.ExtractBytes([]byte("not a zip"), ".docx"); err == nil {
		t.Error("expected error for non-zip input")
	}
	if _, err := e.ExtractBytes(docxWith(t, "word/other.xml", "", ""), ".docx"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected missing body error, got %v", err)
	}
}

func TestSupports(t *testing.T) {
	tests := []struct {
		kind models.Kind
		ext  string
		want bool
	}{
		{models.KindText, ".txt", true},
		{models.KindText, ".PDF", true},
		{models.KindText, ".docx", true},
		{models.KindText, ".xlsx", false},
		{models.KindTable, ".xlsx", true},
		{models.KindTable, ".txt", true},
		{models.KindTable, ".pdf", false},
		{models.KindTable, ".csv", false},
		{models.KindText, "", false},
	}
	for _, tt := range tests {
		if got := Supports(tt.kind, tt.ext); got != tt.want {
			t.Errorf("Supports(%s, %q) = %v, want %v", tt.kind, tt.ext, got, tt.want)
		}
	}
}
