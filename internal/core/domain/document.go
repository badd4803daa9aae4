package domain

import "strings"

// BoundingBox is an axis-aligned rectangle in page coordinate space.
type BoundingBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Union returns the smallest box covering both b and other.
func (b BoundingBox) Union(other BoundingBox) BoundingBox {
	x0 := min(b.X, other.X)
	y0 := min(b.Y, other.Y)
	x1 := max(b.X+b.W, other.X+other.W)
	y1 := max(b.Y+b.H, other.Y+other.H)
	return BoundingBox{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// ClampTo restricts the box to a page of the given dimensions. Pages with
// unknown (zero) dimensions leave the box untouched.
func (b BoundingBox) ClampTo(width, height float64) BoundingBox {
	if width <= 0 || height <= 0 {
		return b
	}
	out := b
	if out.X < 0 {
		out.W += out.X
		out.X = 0
	}
	if out.Y < 0 {
		out.H += out.Y
		out.Y = 0
	}
	if out.X+out.W > width {
		out.W = width - out.X
	}
	if out.Y+out.H > height {
		out.H = height - out.Y
	}
	if out.W < 0 {
		out.W = 0
	}
	if out.H < 0 {
		out.H = 0
	}
	return out
}

// TextRun is one extracted piece of page text with its on-page box.
type TextRun struct {
	Text string      `json:"text"`
	Box  BoundingBox `json:"box"`
}

// Page is an ordered sequence of text runs.
type Page struct {
	Number int       `json:"number"`
	Width  float64   `json:"width"`
	Height float64   `json:"height"`
	Runs   []TextRun `json:"runs"`
}

// DocumentText is a PDF's extracted content: ordered pages of text runs.
// Produced once per upload by the extraction collaborator and read-only to
// the pipeline.
type DocumentText struct {
	Pages []Page `json:"pages"`
}

// PlainText joins all run text in reading order.
func (d DocumentText) PlainText() string {
	var b strings.Builder
	for _, page := range d.Pages {
		for _, run := range page.Runs {
			text := strings.TrimSpace(run.Text)
			if text == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(text)
		}
	}
	return b.String()
}

// Empty reports whether the document carries no text at all.
func (d DocumentText) Empty() bool {
	for _, page := range d.Pages {
		for _, run := range page.Runs {
			if strings.TrimSpace(run.Text) != "" {
				return false
			}
		}
	}
	return true
}
