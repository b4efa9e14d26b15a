package report

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	blankLinesPattern = regexp.MustCompile(`\n{3,}`)
	asciiSpacePattern = regexp.MustCompile(`[ \t\r\n]+`)
)

// PlainText converts a rendered report to readable text for the
// text/plain part of the email: headings become "#" lines, paragraphs are
// separated by blank lines, and table rows become "|"-separated cells.
func PlainText(doc string) (string, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", fmt.Errorf("parse report html: %w", err)
	}

	var sb strings.Builder
	writeText(root, &sb)
	return cleanText(sb.String()), nil
}

func writeText(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(asciiSpacePattern.ReplaceAllString(n.Data, " "))
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "head":
			return
		case "h1", "h2", "h3", "h4", "h5", "h6":
			level := int(n.Data[1] - '0')
			sb.WriteString("\n\n" + strings.Repeat("#", level) + " ")
			writeChildren(n, sb)
			sb.WriteString("\n\n")
			return
		case "p", "div", "table":
			sb.WriteString("\n\n")
			writeChildren(n, sb)
			sb.WriteString("\n\n")
			return
		case "br":
			sb.WriteString("\n")
			return
		case "tr":
			sb.WriteString(strings.Join(rowCells(n), " | ") + "\n")
			return
		case "b", "strong":
			sb.WriteString("**")
			writeChildren(n, sb)
			sb.WriteString("**")
			return
		}
	}
	writeChildren(n, sb)
}

func writeChildren(n *html.Node, sb *strings.Builder) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(c, sb)
	}
}

// rowCells returns the flattened text of each td/th under a row. Fields
// also splits on the non-breaking padding, which has no use in text.
func rowCells(tr *html.Node) []string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.Data != "td" && c.Data != "th") {
			continue
		}
		var sb strings.Builder
		writeChildren(c, &sb)
		cells = append(cells, strings.Join(strings.Fields(sb.String()), " "))
	}
	return cells
}

func cleanText(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = blankLinesPattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s) + "\n"
}
