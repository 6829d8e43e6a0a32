// Package textextract turns uploaded source files into plain text for the
// EPD parser.
package textextract

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding/charmap"

	"epdparser/internal/domain"
	"epdparser/internal/port"
)

// columnGap is written between text runs that are visibly apart on the page,
// so the table parser sees a column boundary.
const columnGap = "   "

type extractor struct{}

// New returns the default TextExtractor.
func New() port.TextExtractor { return extractor{} }

func (extractor) Extract(ctx context.Context, fileType domain.FileType, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var (
		text string
		err  error
	)
	switch fileType {
	case domain.FileTypePDF:
		text, err = pdfText(data)
	case domain.FileTypeTXT:
		text, err = plainText(data)
	default:
		return "", domain.ErrUnsupportedFileType
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTextExtraction, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.ErrEmptyText
	}
	return text, nil
}

// plainText accepts UTF-8 (with or without BOM) and falls back to
// Windows-1251, the usual encoding of exported Russian bills.
func plainText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, err := charmap.Windows1251.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func pdfText(data []byte) (text string, err error) {
	// The pdf package panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		for _, row := range rows {
			if line := joinRow(row.Content); line != "" {
				b.WriteString(line)
				b.WriteByte('\n')
			}
		}
	}
	return b.String(), nil
}

// joinRow rebuilds one visual line from positioned text runs. Runs that touch
// are concatenated, small gaps become a space and wide gaps a column gap.
func joinRow(texts []pdf.Text) string {
	if len(texts) == 0 {
		return ""
	}
	sorted := make([]pdf.Text, len(texts))
	copy(sorted, texts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var b strings.Builder
	end := math.Inf(-1)
	for _, t := range sorted {
		if t.S == "" {
			continue
		}
		if b.Len() > 0 {
			gap := t.X - end
			size := t.FontSize
			if size <= 0 {
				size = 10
			}
			switch {
			case gap > size*1.5:
				b.WriteString(columnGap)
			case gap > size*0.15:
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.S)
		end = t.X + t.W
	}
	return strings.TrimSpace(b.String())
}
