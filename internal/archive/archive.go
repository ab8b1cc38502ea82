// Package archive bundles rendered labels into the per-order zip attachment.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/andresuchdata/autopo-labels/internal/domain"
)

// memberTime is stamped on every entry so identical input yields identical bytes.
var memberTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Build writes labels, in the order given, into "<poID>.zip".
func Build(poID string, labels []domain.LabelImage) (domain.Archive, error) {
	if len(labels) == 0 {
		return domain.Archive{}, fmt.Errorf("build archive for PO %s: %w", poID, domain.ErrEmptyArchive)
	}

	names := MemberNames(labels)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i, label := range labels {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     names[i],
			Method:   zip.Deflate,
			Modified: memberTime,
		})
		if err != nil {
			return domain.Archive{}, fmt.Errorf("create archive member %s: %w", names[i], err)
		}
		if _, err := w.Write(label.PNG); err != nil {
			return domain.Archive{}, fmt.Errorf("write archive member %s: %w", names[i], err)
		}
	}
	if err := zw.Close(); err != nil {
		return domain.Archive{}, fmt.Errorf("finalize archive %s: %w", domain.ArchiveName(poID), err)
	}

	return domain.Archive{
		Name:    domain.ArchiveName(poID),
		Members: names,
		Data:    buf.Bytes(),
	}, nil
}

// MemberNames derives one entry name per label from its item code, keeping
// only letters and digits. Repeated names get _2, _3, ... suffixes.
func MemberNames(labels []domain.LabelImage) []string {
	names := make([]string, len(labels))
	used := make(map[string]bool, len(labels))
	for i, label := range labels {
		stem := safeStem(label.ItemCode)
		name := stem + ".png"
		for n := 2; used[strings.ToLower(name)]; n++ {
			name = stem + "_" + strconv.Itoa(n) + ".png"
		}
		used[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}

func safeStem(itemCode string) string {
	stem := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, itemCode)
	if stem == "" {
		return "label"
	}
	return stem
}
