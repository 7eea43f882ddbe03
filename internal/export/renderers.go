package export

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/fyrsmithlabs/bookd/internal/book"
)

const bannerWidth = 80

type textExporter struct {
	dir string
}

func (e *textExporter) Format() string { return "txt" }

func (e *textExporter) Export(b *book.Book, chapters []book.Chapter) (string, error) {
	var sb strings.Builder
	banner := strings.Repeat("=", bannerWidth)

	sb.WriteString(banner + "\n")
	sb.WriteString(centerLine(b.Title) + "\n")
	sb.WriteString(banner + "\n\n")
	fmt.Fprintf(&sb, "Book ID: %s\n", b.ID)
	fmt.Fprintf(&sb, "Generated: %s\n", b.CreatedAt.Format("2006-01-02 15:04:05"))
	sb.WriteString("\n" + banner + "\n\n")

	for i := range chapters {
		c := &chapters[i]
		if !c.HasContent() {
			continue
		}
		fmt.Fprintf(&sb, "CHAPTER %d: %s\n", c.Number, c.Title)
		sb.WriteString(strings.Repeat("-", bannerWidth) + "\n\n")
		sb.WriteString(*c.Content)
		sb.WriteString("\n\n" + banner + "\n\n")
	}

	return writeArtifact(e.dir, artifactName(b, "txt"), []byte(sb.String()))
}

func centerLine(s string) string {
	if len(s) >= bannerWidth {
		return s
	}
	pad := (bannerWidth - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}

type markdownExporter struct {
	dir string
}

func (e *markdownExporter) Format() string { return "markdown" }

func (e *markdownExporter) Export(b *book.Book, chapters []book.Chapter) (string, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", b.Title)
	fmt.Fprintf(&sb, "*Book ID: %s*  \n", b.ID)
	fmt.Fprintf(&sb, "*Generated: %s*\n\n---\n\n", b.CreatedAt.Format("2006-01-02 15:04:05"))

	for i := range chapters {
		c := &chapters[i]
		if !c.HasContent() {
			continue
		}
		content := *c.Content
		// Generated chapters open with their own heading; avoid doubling it.
		heading := fmt.Sprintf("# Chapter %d", c.Number)
		if !strings.HasPrefix(strings.TrimSpace(content), heading) {
			fmt.Fprintf(&sb, "## Chapter %d: %s\n\n", c.Number, c.Title)
		}
		sb.WriteString(content)
		sb.WriteString("\n\n---\n\n")
	}

	return writeArtifact(e.dir, artifactName(b, "md"), []byte(sb.String()))
}

var htmlTemplate = template.Must(template.New("book").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<h1>{{.Title}}</h1>
<p><em>Book ID: {{.ID}}</em><br><em>Generated: {{.Generated}}</em></p>
<hr>
{{range .Chapters}}
<h2>Chapter {{.Number}}: {{.Title}}</h2>
{{range .Paragraphs}}<p>{{.}}</p>
{{end}}
<hr>
{{end}}
</body>
</html>
`))

type htmlExporter struct {
	dir string
}

func (e *htmlExporter) Format() string { return "html" }

func (e *htmlExporter) Export(b *book.Book, chapters []book.Chapter) (string, error) {
	type htmlChapter struct {
		Number     int
		Title      string
		Paragraphs []string
	}
	data := struct {
		Title     string
		ID        string
		Generated string
		Chapters  []htmlChapter
	}{
		Title:     b.Title,
		ID:        b.ID.String(),
		Generated: b.CreatedAt.Format("2006-01-02 15:04:05"),
	}

	for i := range chapters {
		c := &chapters[i]
		if !c.HasContent() {
			continue
		}
		hc := htmlChapter{Number: c.Number, Title: c.Title}
		for _, para := range strings.Split(*c.Content, "\n\n") {
			para = strings.TrimSpace(para)
			if para == "" || strings.HasPrefix(para, "#") {
				continue
			}
			hc.Paragraphs = append(hc.Paragraphs, para)
		}
		data.Chapters = append(data.Chapters, hc)
	}

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render html: %w", err)
	}

	return writeArtifact(e.dir, artifactName(b, "html"), buf.Bytes())
}
