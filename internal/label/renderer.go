// Package label renders printable barcode labels for purchase order variants.
package label

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/qr"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/autopo-labels/internal/domain"
)

// Label geometry: 70mm x 30mm at 300 DPI.
const (
	Width  = 826
	Height = 354

	marginX         = 30
	codeTop         = 30
	descriptionTop  = 160
	codeFontSize    = 100
	descFontSize    = 45
	symbolPadding   = 40
	qrSize          = 150
	code128Width    = 300
	code128Height   = 150
	descriptionWrap = Width/2 + 200
)

// Symbology selects the scannable encoding printed on the label.
type Symbology string

const (
	SymbologyQR      Symbology = "qr"
	SymbologyCode128 Symbology = "code128"
)

// Options configures a Renderer.
type Options struct {
	Symbology Symbology
	Workers   int
}

// Renderer draws labels. It is safe for concurrent use; font faces are
// created per render because they carry glyph buffers.
type Renderer struct {
	symbology Symbology
	workers   int
	regular   *opentype.Font
	bold      *opentype.Font
}

// NewRenderer parses the bundled typefaces and validates options.
func NewRenderer(opts Options) (*Renderer, error) {
	symbology := opts.Symbology
	if symbology == "" {
		symbology = SymbologyQR
	}
	if symbology != SymbologyQR && symbology != SymbologyCode128 {
		return nil, fmt.Errorf("unsupported symbology %q", symbology)
	}

	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	return &Renderer{
		symbology: symbology,
		workers:   workers,
		regular:   regular,
		bold:      bold,
	}, nil
}

// Render produces the PNG label for one variant. Output is pixel-identical
// for identical input.
func (r *Renderer) Render(v domain.Variant, index int) (domain.LabelImage, error) {
	if err := validatePayload(v.ItemCode); err != nil {
		return domain.LabelImage{}, fmt.Errorf("%w: item %q: %v", domain.ErrRender, v.ItemCode, err)
	}

	symbol, err := r.encode(v.ItemCode)
	if err != nil {
		return domain.LabelImage{}, fmt.Errorf("%w: item %q: %v", domain.ErrRender, v.ItemCode, err)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	sb := symbol.Bounds()
	at := image.Pt(Width-sb.Dx()-symbolPadding, symbolPadding)
	draw.Draw(canvas, sb.Add(at), symbol, sb.Min, draw.Src)

	codeFace, err := r.face(r.bold, codeFontSize)
	if err != nil {
		return domain.LabelImage{}, err
	}
	defer codeFace.Close()
	drawLines(canvas, codeFace, []string{v.ItemCode}, codeTop)

	descFace, err := r.face(r.regular, descFontSize)
	if err != nil {
		return domain.LabelImage{}, err
	}
	defer descFace.Close()
	drawLines(canvas, descFace, wrap(descFace, v.Description, descriptionWrap), descriptionTop)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return domain.LabelImage{}, fmt.Errorf("%w: encode png: %v", domain.ErrRender, err)
	}

	return domain.LabelImage{
		Index:       index,
		ItemCode:    v.ItemCode,
		Description: v.Description,
		PNG:         buf.Bytes(),
	}, nil
}

// RenderAll renders every variant with bounded parallelism. The result is
// indexed by variant position, not completion order; the first failure
// aborts the whole order.
func (r *Renderer) RenderAll(ctx context.Context, variants []domain.Variant) ([]domain.LabelImage, error) {
	labels := make([]domain.LabelImage, len(variants))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, v := range variants {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := r.Render(v, i)
			if err != nil {
				return err
			}
			labels[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return labels, nil
}

func (r *Renderer) encode(payload string) (image.Image, error) {
	switch r.symbology {
	case SymbologyCode128:
		bc, err := code128.Encode(payload)
		if err != nil {
			return nil, err
		}
		// long codes keep one pixel per module rather than shrinking below it
		width := max(code128Width, bc.Bounds().Dx())
		if width > Width-2*symbolPadding {
			return nil, fmt.Errorf("code 128 symbol needs %d modules, label fits %d", width, Width-2*symbolPadding)
		}
		return barcode.Scale(bc, width, code128Height)
	default:
		bc, err := qr.Encode(payload, qr.L, qr.Auto)
		if err != nil {
			return nil, err
		}
		return barcode.Scale(bc, qrSize, qrSize)
	}
}

func (r *Renderer) face(f *opentype.Font, size float64) (font.Face, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: font face: %v", domain.ErrRender, err)
	}
	return face, nil
}

func validatePayload(payload string) error {
	if payload == "" {
		return fmt.Errorf("empty payload")
	}
	if !utf8.ValidString(payload) {
		return fmt.Errorf("payload is not valid UTF-8")
	}
	for _, r := range payload {
		if unicode.IsControl(r) {
			return fmt.Errorf("payload contains control character %U", r)
		}
	}
	return nil
}

// drawLines writes lines top-down starting with the first line's top edge at top.
func drawLines(dst draw.Image, face font.Face, lines []string, top int) {
	metrics := face.Metrics()
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}
	baseline := top + metrics.Ascent.Ceil()
	for _, line := range lines {
		d.Dot = fixed.P(marginX, baseline)
		d.DrawString(line)
		baseline += metrics.Height.Ceil()
	}
}

// wrap greedily packs words into lines no wider than maxWidth pixels. A word
// wider than maxWidth gets a line of its own.
func wrap(face font.Face, text string, maxWidth int) []string {
	var (
		lines   []string
		current []string
	)
	limit := fixed.I(maxWidth)
	for _, word := range strings.Fields(text) {
		candidate := strings.Join(append(current, word), " ")
		if font.MeasureString(face, candidate) <= limit {
			current = append(current, word)
			continue
		}
		if len(current) > 0 {
			lines = append(lines, strings.Join(current, " "))
		}
		current = []string{word}
	}
	if len(current) > 0 {
		lines = append(lines, strings.Join(current, " "))
	}
	return lines
}
