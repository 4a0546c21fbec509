package printout

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/tdewolff/minify/v2"
	minifycss "github.com/tdewolff/minify/v2/css"
	minifyhtml "github.com/tdewolff/minify/v2/html"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

const dateLayout = "Monday, 2 January 2006"

const stylesheet = `
body { font-family: Georgia, serif; margin: 2em auto; max-width: 48em; }
h2 { page-break-before: always; margin-top: 0; }
h2:first-of-type { page-break-before: auto; }
table { border-collapse: collapse; width: 100%; }
th, td { padding: 0.1em 0.6em; text-align: left; vertical-align: bottom; }
td:nth-child(-n+5) { font-weight: bold; white-space: nowrap; }
.meta { color: #555; }
`

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// Markdown renders the book. Sections with chords become a table with one
// column per grid slot followed by the lyric.
func Markdown(b Book) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", escape(b.Title))
	if !b.Date.IsZero() {
		fmt.Fprintf(&sb, "%s\n\n", b.Date.Format(dateLayout))
	}

	for _, song := range b.Songs {
		fmt.Fprintf(&sb, "## %d. %s\n\n", song.Order, escape(song.Title))
		if meta := songMeta(song); meta != "" {
			fmt.Fprintf(&sb, "%s\n\n", meta)
		}
		for _, section := range song.Sections {
			if b.ShowStructure && section.Structure != "" {
				fmt.Fprintf(&sb, "### %s\n\n", escape(label(string(section.Structure))))
			}
			if b.ShowChords && sectionHasChords(section) {
				writeChordTable(&sb, section)
			} else {
				writeLines(&sb, section)
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// HTML renders the book as a standalone HTML document.
func HTML(b Book) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(Markdown(b)), &body); err != nil {
		return nil, fmt.Errorf("printout: render markdown: %w", err)
	}

	var doc bytes.Buffer
	doc.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&doc, "<title>%s</title>\n", html.EscapeString(b.Title))
	fmt.Fprintf(&doc, "<style>%s</style>\n", stylesheet)
	doc.WriteString("</head>\n<body>\n")
	doc.Write(body.Bytes())
	doc.WriteString("</body>\n</html>\n")
	return doc.Bytes(), nil
}

// MinifiedHTML is HTML with markup and stylesheet minified for export.
func MinifiedHTML(b Book) ([]byte, error) {
	doc, err := HTML(b)
	if err != nil {
		return nil, err
	}
	m := minify.New()
	m.AddFunc("text/css", minifycss.Minify)
	m.AddFunc("text/html", minifyhtml.Minify)
	out, err := m.Bytes("text/html", doc)
	if err != nil {
		return nil, fmt.Errorf("printout: minify: %w", err)
	}
	return out, nil
}

func songMeta(song Song) string {
	parts := make([]string, 0, 3)
	if song.Artist != "" {
		parts = append(parts, escape(song.Artist))
	}
	if song.Key != "" {
		parts = append(parts, "Key: "+escape(song.Key))
	}
	if song.Transpose != 0 {
		parts = append(parts, fmt.Sprintf("Transpose: %+d", song.Transpose))
	}
	if len(parts) == 0 {
		return ""
	}
	return "*" + strings.Join(parts, " · ") + "*"
}

func sectionHasChords(s Section) bool {
	for _, l := range s.Lines {
		if l.HasChords() {
			return true
		}
	}
	return false
}

func writeChordTable(sb *strings.Builder, s Section) {
	sb.WriteString("| 1 | 2 | 3 | 4 | 5 | |\n")
	sb.WriteString("|---|---|---|---|---|---|\n")
	for _, l := range s.Lines {
		sb.WriteString("|")
		for _, c := range l.Chords {
			fmt.Fprintf(sb, " %s |", escape(c))
		}
		fmt.Fprintf(sb, " %s |\n", escape(l.Text))
	}
}

// writeLines emits one lyric per line, joined by hard line breaks.
func writeLines(sb *strings.Builder, s Section) {
	for i, l := range s.Lines {
		sb.WriteString(escape(l.Text))
		if i < len(s.Lines)-1 {
			sb.WriteString("\\")
		}
		sb.WriteString("\n")
	}
}

func label(structure string) string {
	if structure == "" {
		return ""
	}
	return strings.ToUpper(structure[:1]) + structure[1:]
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"|", `\|`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
)

// escape neutralises inline markup and block markers at the start of s.
func escape(s string) string {
	s = escaper.Replace(strings.TrimSpace(s))
	if s != "" && strings.ContainsRune("#-+", rune(s[0])) {
		s = `\` + s
	}
	return s
}
