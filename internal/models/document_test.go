package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"text", KindText, false},
		{"table", KindTable, false},
		{"TEXT", "", true},
		{"", "", true},
		{"image", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseKind(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestKind_Valid(t *testing.T) {
	if !KindText.Valid() || !KindTable.Valid() {
		t.Error("text and table should be valid")
	}
	if Kind("other").Valid() {
		t.Error("unknown kind should be invalid")
	}
}

func TestRetrievalResult_Documents(t *testing.T) {
	r := RetrievalResult{
		{Document: Document{Content: "a", Kind: KindText}, Score: 0.9},
		{Document: Document{Content: "b", Kind: KindTable}, Score: 0.5},
	}
	docs := r.Documents()
	if len(docs) != 2 || docs[0].Content != "a" || docs[1].Kind != KindTable {
		t.Errorf("Documents() = %+v", docs)
	}
}

func TestErrorsWrap(t *testing.T) {
	err := fmt.Errorf("load index: %w", ErrDimensionMismatch)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Error("wrapped error should match ErrDimensionMismatch")
	}
	if errors.Is(err, ErrIndexIO) {
		t.Error("wrapped error should not match ErrIndexIO")
	}
}

func TestScoredDocument_JSON(t *testing.T) {
	b, err := json.Marshal(ScoredDocument{Document: Document{Content: "x", Kind: KindTable}, Score: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"content":"x","kind":"table","score":0.5}`
	if string(b) != want {
		t.Errorf("json = %s, want %s", b, want)
	}
}
