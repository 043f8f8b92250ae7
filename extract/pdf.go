package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxPages caps how long a submitted PDF may be.
const DefaultMaxPages = 50

// PDFText returns the text layer of a PDF along with its page count.
// maxPages <= 0 applies DefaultMaxPages.
func PDFText(data []byte, maxPages int) (text string, pages int, err error) {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	// The pdf library panics on some malformed documents.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrNoText, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrNoText, err)
	}

	pages = r.NumPage()
	if pages > maxPages {
		return "", pages, fmt.Errorf("document has %d pages, max %d allowed", pages, maxPages)
	}

	var buf bytes.Buffer
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}

		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}

		buf.WriteString(text)
		buf.WriteByte('\n')
	}

	if buf.Len() == 0 {
		return "", pages, ErrNoText
	}

	return buf.String(), pages, nil
}

// PatentFromPDF extracts patent sections straight from PDF bytes.
func PatentFromPDF(data []byte, maxPages int) (Sections, error) {
	text, _, err := PDFText(data, maxPages)
	if err != nil {
		return Sections{}, err
	}

	return PatentSections(text)
}
