package ingest

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	appErr "github.com/lcodeee/manualqa/internal/pkg/errors"
)

// ExtractPDF pulls the plain-text layer out of a PDF. A document without a
// text layer (a pure scan) yields ErrNoContent and is rejected; no segments
// are created for it.
func ExtractPDF(r io.ReaderAt, size int64) (string, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	if buf.Len() == 0 {
		return "", appErr.ErrNoContent
	}
	return buf.String(), nil
}
