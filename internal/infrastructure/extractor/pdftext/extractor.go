// Package pdftext reads uploaded study material into positioned text.
// Positioned fragments are merged into per-line runs so the span locator
// can hand back page-scoped highlight boxes.
//
// Coordinates stay in PDF user space: origin at the bottom-left of the
// page, units in points.
package pdftext

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/intelliject/intelliject/internal/core/domain"
)

// lineTolerance is the max baseline delta, in points, for two fragments to
// count as the same line.
const lineTolerance = 2.0

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, r io.ReaderAt, size int64) (doc domain.DocumentText, err error) {
	// The underlying parser panics on malformed files.
	defer func() {
		if rec := recover(); rec != nil {
			err = domain.WrapError(domain.ErrInvalidArgument, "extract pdf", fmt.Errorf("malformed pdf: %v", rec))
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return domain.DocumentText{}, domain.WrapError(domain.ErrInvalidArgument, "extract pdf", err)
	}

	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return domain.DocumentText{}, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		width, height := pageDimensions(page)
		out := domain.Page{Number: i - 1, Width: width, Height: height}
		out.Runs = lineRuns(page.Content().Text)
		doc.Pages = append(doc.Pages, out)
	}
	return doc, nil
}

func pageDimensions(page pdf.Page) (float64, float64) {
	mediaBox := page.V.Key("MediaBox")
	if mediaBox.Kind() != pdf.Array || mediaBox.Len() < 4 {
		// US Letter fallback when the page carries no MediaBox.
		return 612, 792
	}
	x0 := mediaBox.Index(0).Float64()
	y0 := mediaBox.Index(1).Float64()
	x1 := mediaBox.Index(2).Float64()
	y1 := mediaBox.Index(3).Float64()
	return x1 - x0, y1 - y0
}

// lineRuns merges positioned fragments into one TextRun per visual line,
// top of page first.
func lineRuns(texts []pdf.Text) []domain.TextRun {
	if len(texts) == 0 {
		return nil
	}

	sorted := append([]pdf.Text(nil), texts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if diff := sorted[i].Y - sorted[j].Y; diff > lineTolerance || diff < -lineTolerance {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var runs []domain.TextRun
	var builder strings.Builder
	var lineY, minX, maxX, maxSize float64
	open := false

	flush := func() {
		if !open {
			return
		}
		text := strings.TrimSpace(builder.String())
		if text != "" {
			runs = append(runs, domain.TextRun{
				Text: text,
				Box: domain.BoundingBox{
					X: minX,
					Y: lineY,
					W: maxX - minX,
					H: maxSize,
				},
			})
		}
		builder.Reset()
		open = false
	}

	for _, t := range sorted {
		if t.S == "" {
			continue
		}
		if open && (t.Y > lineY+lineTolerance || t.Y < lineY-lineTolerance) {
			flush()
		}
		if !open {
			lineY = t.Y
			minX = t.X
			maxX = t.X + t.W
			maxSize = t.FontSize
			open = true
		} else {
			if t.X < minX {
				minX = t.X
			}
			if t.X+t.W > maxX {
				maxX = t.X + t.W
			}
			if t.FontSize > maxSize {
				maxSize = t.FontSize
			}
		}
		builder.WriteString(t.S)
	}
	flush()

	return runs
}
