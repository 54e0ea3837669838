package scoring_test

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/garnizeh/ats/internal/scoring"
)

func TestKeywords(t *testing.T) {
	got := scoring.Keywords("The Go-developer, with 5 years of REST APIs & SQL!")
	want := []string{"developer", "years", "rest", "apis", "sql"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestScore(t *testing.T) {
	description := "Backend engineer building services"
	requirements := "Docker and PostgreSQL"

	full := scoring.Score("Backend engineer building services with Docker and PostgreSQL", "", description, requirements)
	if full.KeywordScore != 100 || full.Overall != 100 {
		t.Fatalf("a resume echoing the posting should score 100, got %#v", full)
	}

	none := scoring.Score("", "", description, requirements)
	if none.Overall != 0 || len(none.MatchedKeywords) != 0 {
		t.Fatalf("empty candidate text must score 0, got %#v", none)
	}

	// job keywords: backend engineer building services docker postgresql -> 6
	// candidate hits backend, docker -> 2/6 = 33.33
	partial := scoring.Score("Backend developer", "I use Docker daily", description, requirements)
	if partial.KeywordScore != 33.33 {
		t.Fatalf("keyword score = %v want 33.33", partial.KeywordScore)
	}
	if partial.MatchScore() != int(partial.Overall) {
		t.Fatalf("MatchScore should truncate Overall")
	}
	if partial.KeywordString() != "backend, docker" {
		t.Fatalf("unexpected keyword string %q", partial.KeywordString())
	}

	if got := scoring.Score("anything", "", "", ""); got.Overall != 0 {
		t.Fatalf("a posting without text cannot be matched, got %v", got.Overall)
	}
}

func TestSkills(t *testing.T) {
	got := scoring.Skills("Experienced with Kubernetes")
	found := map[string]bool{}
	for _, s := range got {
		found[s] = true
	}
	if !found["kubernetes"] {
		t.Fatalf("expected kubernetes in %v", got)
	}
}

func TestExtractText(t *testing.T) {
	text, err := scoring.ExtractText("resume.TXT", []byte("  Go and SQL  "))
	if err != nil || text != "Go and SQL" {
		t.Fatalf("txt: %q %v", text, err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("zip create: %v", err)
	}
	doc := `<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		`<w:p><w:r><w:t>Senior</w:t></w:r><w:r><w:t xml:space="preserve"> Engineer</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Docker</w:t></w:r></w:p></w:body></w:document>`
	if _, err := w.Write([]byte(doc)); err != nil {
		t.Fatalf("zip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	text, err = scoring.ExtractText("cv.docx", buf.Bytes())
	if err != nil {
		t.Fatalf("docx: %v", err)
	}
	if text != "Senior Engineer\nDocker" {
		t.Fatalf("docx text %q", text)
	}

	if _, err := scoring.ExtractText("photo.png", nil); !errors.Is(err, scoring.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if _, err := scoring.ExtractText("broken.pdf", []byte("not a pdf")); err == nil {
		t.Fatalf("expected error for a broken pdf")
	}
}
