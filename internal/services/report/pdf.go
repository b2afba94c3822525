package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/interfaces"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	baseFont     = "Arial"
	baseSize     = 10.0
	lineHeight   = 5.0
	pageMargin   = 15.0
	contentWidth = 210.0 - 2*pageMargin
)

// PDFRenderer converts report markdown to PDF
type PDFRenderer struct {
	logger arbor.ILogger
	md     goldmark.Markdown
}

var _ interfaces.ReportRenderer = (*PDFRenderer)(nil)

func NewPDFRenderer(logger arbor.ILogger) *PDFRenderer {
	return &PDFRenderer{
		logger: logger,
		md:     goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough)),
	}
}

// Render lays out markdown on A4 pages with a confidentiality footer
func (r *PDFRenderer) Render(markdown, title string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("MedGuard", true)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.AliasNbPages("{nb}")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont(baseFont, "I", 7)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 4, fmt.Sprintf("Confidential - sanitized record - page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})
	pdf.AddPage()
	pdf.SetFont(baseFont, "", baseSize)

	source := []byte(markdown)
	doc := r.md.Parser().Parse(text.NewReader(source))

	w := &pdfWriter{
		pdf:    pdf,
		source: source,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
	}
	if err := ast.Walk(doc, w.walk); err != nil {
		return nil, fmt.Errorf("failed to lay out report: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		r.logger.Error().Err(err).Msg("Failed to generate PDF output")
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}

	r.logger.Debug().Int("pdf_size", buf.Len()).Int("pages", pdf.PageCount()).Msg("Report PDF generated")
	return buf.Bytes(), nil
}

// pdfWriter walks the markdown AST, tracking inline style
type pdfWriter struct {
	pdf    *fpdf.Fpdf
	source []byte
	tr     func(string) string
	bold   bool
	italic bool
	depth  int
}

func (w *pdfWriter) style() {
	style := ""
	if w.bold {
		style += "B"
	}
	if w.italic {
		style += "I"
	}
	w.pdf.SetFont(baseFont, style, baseSize)
}

func (w *pdfWriter) write(s string) {
	w.pdf.Write(lineHeight, w.tr(s))
}

func (w *pdfWriter) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			w.pdf.Ln(4)
			w.pdf.SetFont(baseFont, "B", headingSize(node.Level))
		} else {
			w.pdf.Ln(7)
			w.style()
		}

	case *ast.Paragraph:
		if !entering {
			w.pdf.Ln(lineHeight)
			if w.depth == 0 {
				w.pdf.Ln(2)
			}
		}

	case *ast.Text:
		if entering {
			w.write(string(node.Segment.Value(w.source)))
			if node.SoftLineBreak() {
				w.write(" ")
			}
			if node.HardLineBreak() {
				w.pdf.Ln(lineHeight)
			}
		}

	case *ast.Emphasis:
		if node.Level == 2 {
			w.bold = entering
		} else {
			w.italic = entering
		}
		w.style()

	case *ast.CodeSpan:
		if entering {
			w.pdf.SetFont("Courier", "", baseSize)
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					w.write(string(t.Segment.Value(w.source)))
				}
			}
			w.style()
			return ast.WalkSkipChildren, nil
		}

	case *ast.FencedCodeBlock:
		if entering {
			w.block(node.Lines())
			return ast.WalkSkipChildren, nil
		}

	case *ast.CodeBlock:
		if entering {
			w.block(node.Lines())
			return ast.WalkSkipChildren, nil
		}

	case *ast.List:
		if entering {
			w.depth++
		} else {
			w.depth--
			if w.depth == 0 {
				w.pdf.Ln(2)
			}
		}

	case *ast.ListItem:
		if entering {
			w.pdf.SetX(pageMargin + float64(w.depth-1)*5)
			w.write("- ")
		}

	case *ast.ThematicBreak:
		if entering {
			y := w.pdf.GetY() + 2
			w.pdf.Line(pageMargin, y, pageMargin+contentWidth, y)
			w.pdf.Ln(4)
		}

	case *extast.Table:
		if entering {
			w.table(node)
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func headingSize(level int) float64 {
	switch level {
	case 1:
		return 16
	case 2:
		return 13
	}
	return 11
}

// block renders preformatted lines on a shaded background
func (w *pdfWriter) block(lines *text.Segments) {
	w.pdf.SetFont("Courier", "", 9)
	w.pdf.SetFillColor(242, 242, 242)
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := strings.TrimRight(string(seg.Value(w.source)), "\n")
		w.pdf.MultiCell(contentWidth, 4.5, w.tr(line), "", "L", true)
	}
	w.pdf.SetFillColor(255, 255, 255)
	w.pdf.Ln(3)
	w.style()
}

// table renders rows with equal column widths; the first row is the header
func (w *pdfWriter) table(n *extast.Table) {
	var rows [][]string
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		var cells []string
		for cell := child.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, strings.TrimSpace(string(cell.Text(w.source))))
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	colWidth := contentWidth / float64(len(rows[0]))
	for i, row := range rows {
		if i == 0 {
			w.pdf.SetFont(baseFont, "B", 9)
			w.pdf.SetFillColor(230, 230, 230)
		} else {
			w.pdf.SetFont(baseFont, "", 9)
		}
		for j := range rows[0] {
			value := ""
			if j < len(row) {
				value = row[j]
			}
			w.pdf.CellFormat(colWidth, 6, w.tr(fit(w.pdf, value, colWidth-2)), "1", 0, "L", i == 0, 0, "")
		}
		w.pdf.Ln(-1)
	}
	w.pdf.SetFillColor(255, 255, 255)
	w.pdf.Ln(3)
	w.style()
}

// fit truncates s with an ellipsis so it fits width at the current font
func fit(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
