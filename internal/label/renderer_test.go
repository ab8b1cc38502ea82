package label

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/autopo-labels/internal/domain"
)

func newTestRenderer(t *testing.T, opts Options) *Renderer {
	t.Helper()
	r, err := NewRenderer(opts)
	require.NoError(t, err)
	return r
}

func TestRenderProducesLabelCanvas(t *testing.T) {
	r := newTestRenderer(t, Options{})

	img, err := r.Render(domain.Variant{ItemCode: "V109327", Description: "Sample description for layout validation"}, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, img.Index)
	assert.Equal(t, "V109327", img.ItemCode)

	decoded, err := png.Decode(bytes.NewReader(img.PNG))
	require.NoError(t, err)
	assert.Equal(t, Width, decoded.Bounds().Dx())
	assert.Equal(t, Height, decoded.Bounds().Dy())
}

func TestRenderIsDeterministic(t *testing.T) {
	r := newTestRenderer(t, Options{})
	v := domain.Variant{ItemCode: "ABC1", Description: "Red Sign"}

	first, err := r.Render(v, 0)
	require.NoError(t, err)
	second, err := r.Render(v, 0)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first.PNG, second.PNG))

	other, err := r.Render(domain.Variant{ItemCode: "ABC2", Description: "Red Sign"}, 0)
	require.NoError(t, err)
	assert.False(t, bytes.Equal(first.PNG, other.PNG))
}

func TestRenderRejectsUnencodablePayloads(t *testing.T) {
	r := newTestRenderer(t, Options{})

	for _, code := range []string{"", "AB\x00C", "AB\nC", string([]byte{0xff, 0xfe})} {
		_, err := r.Render(domain.Variant{ItemCode: code}, 0)
		require.ErrorIs(t, err, domain.ErrRender, "code %q", code)
	}
}

func TestRenderCode128(t *testing.T) {
	r := newTestRenderer(t, Options{Symbology: SymbologyCode128})

	_, err := r.Render(domain.Variant{ItemCode: "V109327", Description: "Fire exit"}, 0)
	require.NoError(t, err)

	_, err = r.Render(domain.Variant{ItemCode: "V10932€", Description: "Fire exit"}, 0)
	require.ErrorIs(t, err, domain.ErrRender)
}

func TestRenderCode128LongItemCode(t *testing.T) {
	r := newTestRenderer(t, Options{Symbology: SymbologyCode128})

	img, err := r.Render(domain.Variant{ItemCode: "SIGN-ALUMINIUM-A4-RED-2024-X", Description: "Aluminium sign"}, 0)
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(img.PNG))
	require.NoError(t, err)
	assert.Equal(t, Width, decoded.Bounds().Dx())
	assert.Equal(t, Height, decoded.Bounds().Dy())
}

func TestNewRendererRejectsUnknownSymbology(t *testing.T) {
	_, err := NewRenderer(Options{Symbology: "datamatrix"})
	require.Error(t, err)
}

func TestRenderAllKeepsVariantOrder(t *testing.T) {
	r := newTestRenderer(t, Options{Workers: 4})

	variants := make([]domain.Variant, 12)
	for i := range variants {
		variants[i] = domain.Variant{ItemCode: fmt.Sprintf("ITEM%02d", i), Description: "Sign"}
	}

	labels, err := r.RenderAll(context.Background(), variants)
	require.NoError(t, err)
	require.Len(t, labels, len(variants))
	for i, img := range labels {
		assert.Equal(t, i, img.Index)
		assert.Equal(t, variants[i].ItemCode, img.ItemCode)
	}
}

func TestRenderAllFailsWholeOrder(t *testing.T) {
	r := newTestRenderer(t, Options{Workers: 2})

	variants := []domain.Variant{
		{ItemCode: "OK1"},
		{ItemCode: "BAD\x07"},
		{ItemCode: "OK2"},
	}

	labels, err := r.RenderAll(context.Background(), variants)
	require.ErrorIs(t, err, domain.ErrRender)
	assert.Nil(t, labels)
}

func TestWrapRespectsWidth(t *testing.T) {
	r := newTestRenderer(t, Options{})
	face, err := r.face(r.regular, descFontSize)
	require.NoError(t, err)
	defer face.Close()

	lines := wrap(face, "Children must not play on this site 200mm x 300mm - 1mm Rigid Plastic Sign", descriptionWrap)
	require.Greater(t, len(lines), 1)
	assert.Empty(t, wrap(face, "   ", descriptionWrap))
}
