package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/autopo-labels/internal/domain"
)

func labelsFor(codes ...string) []domain.LabelImage {
	labels := make([]domain.LabelImage, len(codes))
	for i, code := range codes {
		labels[i] = domain.LabelImage{Index: i, ItemCode: code, PNG: []byte("png-" + code)}
	}
	return labels
}

func readMembers(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	members := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		members[f.Name] = string(content)
	}
	return members
}

func TestBuildNamesArchiveAfterPO(t *testing.T) {
	a, err := Build("UPD-PO100", labelsFor("ABC1"))
	require.NoError(t, err)

	assert.Equal(t, "UPD-PO100.zip", a.Name)
	assert.Equal(t, []string{"ABC1.png"}, a.Members)
	assert.Equal(t, map[string]string{"ABC1.png": "png-ABC1"}, readMembers(t, a.Data))
}

func TestBuildKeepsInsertionOrder(t *testing.T) {
	a, err := Build("UPD-PO27652", labelsFor("V109328", "V109327", "A-1"))
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(a.Data), int64(len(a.Data)))
	require.NoError(t, err)
	var order []string
	for _, f := range zr.File {
		order = append(order, f.Name)
	}
	assert.Equal(t, []string{"V109328.png", "V109327.png", "A1.png"}, order)
	assert.Equal(t, order, a.Members)
}

func TestBuildIsReproducible(t *testing.T) {
	labels := labelsFor("ABC1", "ABC2", "ABC1")

	first, err := Build("UPD-PO100", labels)
	require.NoError(t, err)
	second, err := Build("UPD-PO100", labels)
	require.NoError(t, err)

	assert.Equal(t, first.Members, second.Members)
	assert.True(t, bytes.Equal(first.Data, second.Data))
}

func TestBuildDisambiguatesCollisions(t *testing.T) {
	a, err := Build("UPD-PO100", labelsFor("ABC1", "ABC-1", "abc1", "ABC1_2", "***"))
	require.NoError(t, err)

	assert.Equal(t, []string{"ABC1.png", "ABC1_2.png", "abc1_3.png", "ABC12.png", "label.png"}, a.Members)
	assert.Len(t, readMembers(t, a.Data), 5)
}

func TestBuildRejectsEmptyInput(t *testing.T) {
	_, err := Build("UPD-PO100", nil)
	require.ErrorIs(t, err, domain.ErrEmptyArchive)
}
