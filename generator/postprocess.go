package generator

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	citationRe  = regexp.MustCompile(`\s?\[\d{1,2}(?:\s*[,\-–]\s*\d{1,2})*\]`)
	blankRunsRe = regexp.MustCompile(`\n{3,}`)
	scoreRe     = regexp.MustCompile(`(?im)^[\s*_#>\-]*score[\s*_]*[:=][\s*_]*(\d{1,3})(?:\.\d+)?\b`)
	reportRe    = regexp.MustCompile(`(?is)report[\s*_]*:[\s*_]*(.*)$`)
)

// preambleRe matches only prefaces that talk about the output itself.
// "Here's what nobody tells you about focus:" is a hook and stays.
var preambleRe = regexp.MustCompile(`(?i)^(?:(?:sure|certainly|of course|absolutely)[!,.]?\s+)?` +
	`(?:here(?:'s| is) (?:the|your|a|an|my) (?:(?:revised|final|updated|improved|refined|rewritten|polished|new|linkedin)\s+)*(?:post|draft|version)\b` +
	`|(?:revised|final|updated|improved) (?:linkedin )?(?:post|draft|version)\b)[^\n]*:\s*\n+`)

var mdParser = goldmark.New().Parser()

// PostProcess turns raw model output into LinkedIn-ready plain text: markdown is
// flattened, citation markers and chatty prefaces are removed.
func PostProcess(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = preambleRe.ReplaceAllString(s, "")
	s = unwrapQuotes(s)
	s = FlattenMarkdown(s)
	s = citationRe.ReplaceAllString(s, "")
	s = tidyLines(s)
	if s == "" {
		return "", ErrEmptyOutput
	}
	return s, nil
}

// FlattenMarkdown renders markdown as plain text. LinkedIn shows markdown syntax
// literally, so emphasis markers, headings and links are reduced to their text.
func FlattenMarkdown(md string) string {
	src := []byte(md)
	doc := mdParser.Parse(text.NewReader(src))

	var sb strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				sb.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					sb.WriteString("\n")
				}
			}
		case *ast.String:
			if entering {
				sb.Write(node.Value)
			}
		case *ast.AutoLink:
			if entering {
				sb.Write(node.URL(src))
			}
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					sb.Write(seg.Value(src))
				}
				sb.WriteString("\n")
			}
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			if entering {
				if l, ok := n.Parent().(*ast.List); ok && l.IsOrdered() {
					sb.WriteString(strconv.Itoa(l.Start+itemIndex(n)) + string(l.Marker) + " ")
				} else {
					sb.WriteString("• ")
				}
			}
		case *ast.TextBlock:
			if !entering {
				sb.WriteString("\n")
			}
		case *ast.Paragraph, *ast.Heading, *ast.ThematicBreak:
			if !entering {
				sb.WriteString("\n\n")
			}
		case *ast.List:
			if !entering {
				sb.WriteString("\n")
			}
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

func itemIndex(n ast.Node) int {
	i := 0
	for p := n.PreviousSibling(); p != nil; p = p.PreviousSibling() {
		i++
	}
	return i
}

// unwrapQuotes drops one pair of quotes around the whole text. Quotes inside
// the post, including a closing quotation, are kept.
func unwrapQuotes(s string) string {
	for _, pair := range [][2]string{{`"`, `"`}, {"“", "”"}} {
		open, closing := pair[0], pair[1]
		if len(s) < len(open)+len(closing) || !strings.HasPrefix(s, open) || !strings.HasSuffix(s, closing) {
			continue
		}
		inner := s[len(open) : len(s)-len(closing)]
		if strings.Contains(inner, open) || strings.Contains(inner, closing) {
			continue
		}
		return strings.TrimSpace(inner)
	}
	return s
}

func tidyLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	s = strings.Join(lines, "\n")
	s = blankRunsRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// ParseCritique extracts the "SCORE: N" verdict wherever it appears. A missing,
// malformed or out-of-range score yields 0 so the loop keeps refining instead of
// accepting. The report is the REPORT section, or everything but the score line.
func ParseCritique(raw string) CritiqueReport {
	out := CritiqueReport{Raw: raw}
	body := strings.TrimSpace(raw)

	loc := scoreRe.FindStringSubmatchIndex(body)
	if loc != nil {
		n, err := strconv.Atoi(body[loc[2]:loc[3]])
		if err == nil && n >= 0 && n <= 100 {
			out.Score = n
		}
		body = strings.TrimSpace(body[:loc[0]] + "\n" + body[loc[1]:])
	}

	if m := reportRe.FindStringSubmatch(body); m != nil {
		out.Report = strings.TrimSpace(m[1])
	} else {
		out.Report = body
	}
	return out
}
