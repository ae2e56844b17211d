package services

import (
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// CountPDFPages returns the page count of the PDF in r. The parser panics on
// some malformed inputs, so panics are reported as errors.
func CountPDFPages(r io.ReaderAt, size int64) (pages int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = 0, fmt.Errorf("parse pdf: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return 0, fmt.Errorf("parse pdf: %w", err)
	}
	return reader.NumPage(), nil
}
