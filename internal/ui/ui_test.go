package ui

import (
	"strings"
	"testing"

	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/registry"
)

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 50, "short"},
		{strings.Repeat("a", 50), 50, strings.Repeat("a", 50)},
		{strings.Repeat("a", 51), 50, strings.Repeat("a", 47) + "..."},
		{"abcdef", 3, "abc"},
		{strings.Repeat("é", 51), 50, strings.Repeat("é", 47) + "..."},
		{"héllo wörld", 6, "hél..."},
	}
	for _, c := range cases {
		if got := Truncate(c.in, c.max); got != c.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", c.in, c.max, got, c.want)
		}
	}
}

func TestRenderItems(t *testing.T) {
	cols := []registry.Column{
		{Header: "Slug", Key: "slug"},
		{Header: "Title", Key: "title"},
		{Header: "Url Link", Key: "url_link"},
	}
	items := []models.Item{
		{Slug: "great-tool", Title: "Great Tool", Fields: map[string]string{"url_link": "https://example.com"}},
		{Slug: "another", Title: strings.Repeat("x", 80)},
	}

	out := RenderItems(cols, items)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "Slug") || !strings.Contains(lines[0], "Url Link") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(out, "great-tool") || !strings.Contains(out, "https://example.com") {
		t.Errorf("missing cells:\n%s", out)
	}
	// Long titles are capped, ellipsized.
	if strings.Contains(out, strings.Repeat("x", 51)) {
		t.Errorf("cell not truncated:\n%s", out)
	}
	if !strings.Contains(out, strings.Repeat("x", 47)+"...") {
		t.Errorf("missing ellipsis:\n%s", out)
	}
}

func TestRenderItemsEmpty(t *testing.T) {
	cols := []registry.Column{{Header: "Slug", Key: "slug"}, {Header: "Title", Key: "title"}}
	out := RenderItems(cols, nil)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Errorf("expected header and rule only:\n%s", out)
	}
}

func TestConfirm(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"yes\n", true},
		{"Y\n", true},
		{"n\n", false},
		{"\n", false},
		{"whatever\n", false},
	}
	for _, c := range cases {
		var out strings.Builder
		if got := confirm(strings.NewReader(c.input), &out, "Delete it?"); got != c.want {
			t.Errorf("confirm(%q) = %v, want %v", c.input, got, c.want)
		}
		if !strings.Contains(out.String(), "Delete it?") {
			t.Errorf("prompt not shown: %q", out.String())
		}
	}
}

func TestChoose(t *testing.T) {
	options := []string{"sentences", "links", "random"}

	var out strings.Builder
	choice, ok := choose(strings.NewReader("2\n"), &out, "Where does this go?", options)
	if !ok || choice != "links" {
		t.Errorf("choose = %q, %v", choice, ok)
	}
	if !strings.Contains(out.String(), "1. sentences") || !strings.Contains(out.String(), "4. skip") {
		t.Errorf("menu = %q", out.String())
	}

	// Skip entry and garbage both decline.
	if _, ok := choose(strings.NewReader("4\n"), &out, "p", options); ok {
		t.Error("skip entry should not select")
	}
	if _, ok := choose(strings.NewReader("abc\n"), &out, "p", options); ok {
		t.Error("non-numeric input should not select")
	}
	if _, ok := choose(strings.NewReader("0\n"), &out, "p", options); ok {
		t.Error("out-of-range input should not select")
	}
}

func TestReadLine(t *testing.T) {
	var out strings.Builder
	line, err := readLine(strings.NewReader("  https://example.com  \n"), &out, "Url Link")
	if err != nil {
		t.Fatal(err)
	}
	if line != "https://example.com" {
		t.Errorf("line = %q", line)
	}
	if !strings.Contains(out.String(), "Url Link:") {
		t.Errorf("prompt = %q", out.String())
	}
}

func TestShowCandidate(t *testing.T) {
	var out strings.Builder
	c := models.EmailCandidate{
		Subject: "A saved link",
		Sender:  "me@example.com",
		Date:    "2025-02-01 10:00:00 -0500",
		Body:    "check this out https://example.com",
	}
	ShowCandidate(&out, c, 0, 3, "links")
	s := out.String()
	for _, want := range []string{"[1/3]", "A saved link", "me@example.com", "links", "check this out"} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
}
