package tui

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma"
	"github.com/alecthomas/chroma/formatters"
	"github.com/alecthomas/chroma/lexers"
	"github.com/alecthomas/chroma/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	mdCodeBlockRe  = regexp.MustCompile(`(?s)<pre><code(?: class="language-([a-zA-Z0-9]+)")?>(.*?)</code></pre>`)
	mdHeadingRe    = regexp.MustCompile(`<h[1-3] id="[^"]*">(.*?)</h[1-3]>`)
	mdStrongRe     = regexp.MustCompile(`<strong>(.*?)</strong>`)
	mdEmRe         = regexp.MustCompile(`<em>(.*?)</em>`)
	mdInlineCodeRe = regexp.MustCompile(`<code>([^<]+)</code>`)
	mdListItemRe   = regexp.MustCompile(`<li>(.*?)</li>`)
	mdTagRe        = regexp.MustCompile(`<[^>]+>`)
	mdMultiNLRe    = regexp.MustCompile(`\n{3,}`)
)

// MarkdownRenderer turns assistant markdown into styled terminal text, with
// chroma-highlighted code blocks.
type MarkdownRenderer struct {
	md        goldmark.Markdown
	formatter chroma.Formatter
	style     *chroma.Style

	headingStyle lipgloss.Style
	strongStyle  lipgloss.Style
	codeStyle    lipgloss.Style
}

func NewMarkdownRenderer(theme Theme) *MarkdownRenderer {
	md := goldmark.New(
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
		goldmark.WithExtensions(extension.GFM, extension.Strikethrough),
	)
	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}
	return &MarkdownRenderer{
		md:           md,
		formatter:    formatters.Get("terminal256"),
		style:        style,
		headingStyle: lipgloss.NewStyle().Bold(true).Foreground(theme.Accent),
		strongStyle:  lipgloss.NewStyle().Bold(true),
		codeStyle:    lipgloss.NewStyle().Foreground(theme.Accent2),
	}
}

func (r *MarkdownRenderer) Render(src string) string {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return src
	}
	out := buf.String()

	out = mdCodeBlockRe.ReplaceAllStringFunc(out, func(block string) string {
		m := mdCodeBlockRe.FindStringSubmatch(block)
		return "\n" + r.highlight(unescapeHTML(m[2]), m[1]) + "\n"
	})
	out = mdHeadingRe.ReplaceAllStringFunc(out, func(h string) string {
		m := mdHeadingRe.FindStringSubmatch(h)
		return r.headingStyle.Render(unescapeHTML(m[1]))
	})
	out = mdStrongRe.ReplaceAllStringFunc(out, func(s string) string {
		m := mdStrongRe.FindStringSubmatch(s)
		return r.strongStyle.Render(m[1])
	})
	out = mdEmRe.ReplaceAllString(out, "$1")
	out = mdInlineCodeRe.ReplaceAllStringFunc(out, func(s string) string {
		m := mdInlineCodeRe.FindStringSubmatch(s)
		return r.codeStyle.Render(unescapeHTML(m[1]))
	})
	out = mdListItemRe.ReplaceAllString(out, "  • $1")
	out = mdTagRe.ReplaceAllString(out, "")
	out = unescapeHTML(out)
	out = mdMultiNLRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

func (r *MarkdownRenderer) highlight(code, lang string) string {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var b strings.Builder
	if err := r.formatter.Format(&b, r.style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(b.String(), "\n")
}

func unescapeHTML(s string) string {
	replacer := strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&amp;", "&",
	)
	return replacer.Replace(s)
}

func fmtSiblingChrome(index, count int) string {
	if count < 2 {
		return ""
	}
	return fmt.Sprintf("‹ %d/%d ›", index, count)
}
