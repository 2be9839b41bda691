// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// wrapBreakpoints are the extra characters ansi.Wrap may break after.
const wrapBreakpoints = " ,.;-/"

// minimumWidth keeps deeply nested content from wrapping one word per
// line.
const minimumWidth = 16

var (
	markdownOnce   sync.Once
	markdownParser goldmark.Markdown
)

func parser() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownParser = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdownParser
}

// renderMarkdown renders a completed reply as styled terminal text
// wrapped to width. Model output is untrusted: raw HTML is shown as
// text, never interpreted.
func renderMarkdown(input string, theme Theme, width int) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	source := []byte(input)
	document := parser().Parser().Parse(text.NewReader(source))

	// The TUI always writes to a terminal; force a color profile so
	// output does not depend on how the process was started.
	styles := lipgloss.NewRenderer(io.Discard, termenv.WithProfile(termenv.ANSI256))
	styles.SetColorProfile(termenv.ANSI256)

	renderer := &markdownRenderer{source: source, theme: theme, styles: styles}
	blocks := renderer.blocks(document, width)
	return strings.Join(blocks, "\n\n")
}

type markdownRenderer struct {
	source []byte
	theme  Theme
	styles *lipgloss.Renderer
}

func (renderer *markdownRenderer) style(color lipgloss.Color) lipgloss.Style {
	return renderer.styles.NewStyle().Foreground(color)
}

// blocks renders each block child of parent, one string per block.
func (renderer *markdownRenderer) blocks(parent ast.Node, width int) []string {
	width = max(width, minimumWidth)
	var rendered []string
	for child := parent.FirstChild(); child != nil; child = child.NextSibling() {
		if block := renderer.block(child, width); block != "" {
			rendered = append(rendered, block)
		}
	}
	return rendered
}

func (renderer *markdownRenderer) block(node ast.Node, width int) string {
	switch node := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return ansi.Wrap(renderer.inline(node), width, wrapBreakpoints)

	case *ast.Heading:
		content := ansi.Strip(renderer.inline(node))
		style := renderer.style(renderer.theme.HeadingText).Bold(true)
		if node.Level > 2 {
			style = style.Foreground(renderer.theme.NormalText)
		}
		return ansi.Wrap(style.Render(content), width, wrapBreakpoints)

	case *ast.FencedCodeBlock:
		language := string(node.Language(renderer.source))
		return renderer.code(renderer.lines(node), language)

	case *ast.CodeBlock:
		return renderer.code(renderer.lines(node), "")

	case *ast.Blockquote:
		inner := strings.Join(renderer.blocks(node, width-2), "\n\n")
		bar := renderer.style(renderer.theme.BorderColor).Render("│ ")
		return prefixLines(inner, bar, bar)

	case *ast.List:
		return renderer.list(node, width)

	case *ast.ThematicBreak:
		return renderer.style(renderer.theme.BorderColor).Render(strings.Repeat("─", min(width, 40)))

	case *ast.HTMLBlock:
		return renderer.style(renderer.theme.FaintText).Render(strings.TrimRight(renderer.lines(node), "\n"))

	case *extast.Table:
		return renderer.table(node)
	}

	// Unknown blocks degrade to their inline text.
	return ansi.Wrap(renderer.inline(node), width, wrapBreakpoints)
}

// lines concatenates a block's raw source lines.
func (renderer *markdownRenderer) lines(node ast.Node) string {
	var builder strings.Builder
	lines := node.Lines()
	for index := range lines.Len() {
		segment := lines.At(index)
		builder.Write(segment.Value(renderer.source))
	}
	return builder.String()
}

// code highlights a code block with chroma, falling back to plain
// styling for unknown languages.
func (renderer *markdownRenderer) code(code, language string) string {
	code = strings.TrimRight(code, "\n")
	if language != "" {
		var highlighted strings.Builder
		if err := quick.Highlight(&highlighted, code, language, "terminal256", "monokai"); err == nil {
			return prefixLines(strings.TrimRight(highlighted.String(), "\n"), "  ", "  ")
		}
	}
	return prefixLines(renderer.style(renderer.theme.CodeText).Render(code), "  ", "  ")
}

func (renderer *markdownRenderer) list(list *ast.List, width int) string {
	number := list.Start
	var items []string
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		bullet := "• "
		if list.IsOrdered() {
			bullet = fmt.Sprintf("%d. ", number)
			number++
		}
		indent := strings.Repeat(" ", ansi.StringWidth(bullet))

		separator := "\n\n"
		if list.IsTight {
			separator = "\n"
		}
		content := strings.Join(renderer.blocks(item, width-len(indent)), separator)
		items = append(items, prefixLines(content, bullet, indent))
	}
	if list.IsTight {
		return strings.Join(items, "\n")
	}
	return strings.Join(items, "\n\n")
}

// table renders a GFM table as aligned columns without borders.
func (renderer *markdownRenderer) table(table *extast.Table) string {
	var rows [][]string
	for row := table.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, renderer.inline(cell))
		}
		rows = append(rows, cells)
	}

	var widths []int
	for _, row := range rows {
		for column, cell := range row {
			if column >= len(widths) {
				widths = append(widths, 0)
			}
			widths[column] = max(widths[column], ansi.StringWidth(cell))
		}
	}

	header := renderer.styles.NewStyle().Bold(true)
	var lines []string
	for index, row := range rows {
		var padded []string
		for column, cell := range row {
			if index == 0 {
				cell = header.Render(ansi.Strip(cell))
			}
			padded = append(padded, cell+strings.Repeat(" ", widths[column]-ansi.StringWidth(cell)))
		}
		lines = append(lines, strings.TrimRight(strings.Join(padded, "  "), " "))
	}
	return strings.Join(lines, "\n")
}

// inline renders the inline children of node into one styled string.
func (renderer *markdownRenderer) inline(node ast.Node) string {
	var builder strings.Builder
	renderer.inlineInto(&builder, node, inlineStyle{})
	return builder.String()
}

type inlineStyle struct {
	bold, italic, strike bool
}

func (renderer *markdownRenderer) inlineInto(builder *strings.Builder, parent ast.Node, current inlineStyle) {
	for child := parent.FirstChild(); child != nil; child = child.NextSibling() {
		switch child := child.(type) {
		case *ast.Text:
			builder.WriteString(renderer.styled(string(child.Segment.Value(renderer.source)), current))
			switch {
			case child.HardLineBreak():
				builder.WriteString("\n")
			case child.SoftLineBreak():
				builder.WriteString(" ")
			}

		case *ast.String:
			builder.WriteString(renderer.styled(string(child.Value), current))

		case *ast.Emphasis:
			nested := current
			if child.Level >= 2 {
				nested.bold = true
			} else {
				nested.italic = true
			}
			renderer.inlineInto(builder, child, nested)

		case *extast.Strikethrough:
			nested := current
			nested.strike = true
			renderer.inlineInto(builder, child, nested)

		case *ast.CodeSpan:
			var code strings.Builder
			renderer.inlineInto(&code, child, inlineStyle{})
			builder.WriteString(renderer.style(renderer.theme.CodeText).Render(ansi.Strip(code.String())))

		case *ast.Link:
			label := renderer.inlineText(child)
			destination := string(child.Destination)
			builder.WriteString(renderer.style(renderer.theme.LinkText).Underline(true).Render(label))
			if destination != "" && destination != label {
				builder.WriteString(renderer.style(renderer.theme.FaintText).Render(" (" + destination + ")"))
			}

		case *ast.AutoLink:
			builder.WriteString(renderer.style(renderer.theme.LinkText).Underline(true).Render(string(child.URL(renderer.source))))

		case *ast.Image:
			builder.WriteString(renderer.style(renderer.theme.FaintText).Render("[image: " + renderer.inlineText(child) + "]"))

		case *ast.RawHTML:
			segments := child.Segments
			for index := range segments.Len() {
				segment := segments.At(index)
				builder.WriteString(renderer.style(renderer.theme.FaintText).Render(string(segment.Value(renderer.source))))
			}

		case *extast.TaskCheckBox:
			if child.IsChecked {
				builder.WriteString("[x] ")
			} else {
				builder.WriteString("[ ] ")
			}

		default:
			renderer.inlineInto(builder, child, current)
		}
	}
}

// inlineText returns the unstyled text of node's inline children.
func (renderer *markdownRenderer) inlineText(node ast.Node) string {
	var builder strings.Builder
	renderer.inlineInto(&builder, node, inlineStyle{})
	return ansi.Strip(builder.String())
}

func (renderer *markdownRenderer) styled(content string, current inlineStyle) string {
	if content == "" {
		return ""
	}
	return renderer.style(renderer.theme.NormalText).
		Bold(current.bold).
		Italic(current.italic).
		Strikethrough(current.strike).
		Render(content)
}

// prefixLines prefixes the first line of content with first and every
// other line with rest.
func prefixLines(content, first, rest string) string {
	lines := strings.Split(content, "\n")
	for index, line := range lines {
		if index == 0 {
			lines[index] = first + line
		} else {
			lines[index] = rest + line
		}
	}
	return strings.Join(lines, "\n")
}
