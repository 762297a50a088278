package llm

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfMagic is the header every well-formed PDF starts with.
var pdfMagic = []byte("%PDF-")

// IsPDF reports whether the upload looks like a PDF document.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}

// ExtractPDFText pulls the text layer out of a PDF upload. Encrypted,
// scanned or malformed files with no extractable text are rejected as
// unprocessable. The parser panics on some malformed inputs, so failures
// of any shape collapse into the same rejection.
func ExtractPDFText(data []byte) (text string, err error) {
	defer func() {
		if recover() != nil {
			text = ""
			err = NewUnprocessable("unable to read PDF content")
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", NewUnprocessable("unable to read PDF content")
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", NewUnprocessable("unable to read PDF content")
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", NewUnprocessable("unable to read PDF content")
	}

	text = strings.TrimSpace(buf.String())
	if text == "" {
		return "", NewUnprocessable("unable to read PDF content")
	}
	return text, nil
}
