package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/kiku/internal/models"
)

func sampleAnswer() *models.Answer {
	return &models.Answer{
		Retrieved: models.RetrievalResult{
			{Document: models.Document{Content: "Curso A: 30 vagas", Kind: models.KindTable}, Score: 0.91},
			{Document: models.Document{Content: "As inscrições vão até março.", Kind: models.KindText}, Score: 0.5},
		},
		Answer: "O curso A tem 30 vagas.",
	}
}

func TestWriteAnswer_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, sampleAnswer(), OutputText, TextOptions{}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Chunk 1 [table] Score: 0.9100\nCurso A: 30 vagas",
		"Chunk 2 [text] Score: 0.5000\nAs inscrições vão até março.",
		"Answer:\nO curso A tem 30 vagas.\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Chunk 1") > strings.Index(out, "Answer:") {
		t.Error("chunks should be printed before the answer")
	}
}

func TestWriteAnswer_hideAndTruncate(t *testing.T) {
	var buf bytes.Buffer
	_ = WriteAnswer(&buf, sampleAnswer(), OutputText, TextOptions{HideChunks: true})
	if strings.Contains(buf.String(), "Chunk") {
		t.Errorf("chunks should be hidden:\n%s", buf.String())
	}

	buf.Reset()
	_ = WriteAnswer(&buf, sampleAnswer(), OutputText, TextOptions{ChunkChars: 7})
	if !strings.Contains(buf.String(), "Curso A...\n") {
		t.Errorf("chunk not truncated:\n%s", buf.String())
	}
}

func TestWriteAnswer_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, sampleAnswer(), OutputJSON, TextOptions{}); err != nil {
		t.Fatal(err)
	}
	var decoded models.Answer
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Answer != "O curso A tem 30 vagas." || len(decoded.Retrieved) != 2 || decoded.Retrieved[0].Kind != models.KindTable {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteRetrieval(t *testing.T) {
	var buf bytes.Buffer
	_ = WriteRetrieval(&buf, nil, OutputText, TextOptions{})
	if buf.String() != "No chunks retrieved.\n" {
		t.Errorf("empty text output = %q", buf.String())
	}
	buf.Reset()
	_ = WriteRetrieval(&buf, nil, OutputJSON, TextOptions{})
	if !strings.Contains(buf.String(), `"retrieved": []`) {
		t.Errorf("empty json output = %q", buf.String())
	}
	buf.Reset()
	_ = WriteRetrieval(&buf, sampleAnswer().Retrieved, OutputText, TextOptions{})
	if !strings.Contains(buf.String(), "Chunk 2 [text]") || strings.Contains(buf.String(), "Answer:") {
		t.Errorf("retrieval output:\n%s", buf.String())
	}
}

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputText, "text": OutputText, "json": OutputJSON} {
		got, err := ParseOutputFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseOutputFormat("yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		s    string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 5, "hello..."},
		{"inscrições", 8, "inscriçõ..."},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.s, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.max, got, tt.want)
		}
	}
}
