package extract

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/meridianfs/opsportal/internal/telemetry"
)

// Scan heuristic: direct extraction yielding almost nothing from a
// non-trivial byte count means the pages are images.
const (
	scannedMinChars  = 50
	scannedByteRatio = 500 // bytes of PDF per char of text before we suspect a scan
)

// pdfDecoder tries strategies in order: direct text extraction, then OCR
// when the result looks scanned (or direct extraction failed outright). The
// longer output wins. Total failure decodes to an empty string, not an error
// — a blank page is not worth aborting the request for.
func pdfDecoder(ocr OCR) DecodeFunc {
	return func(data []byte) (string, error) {
		direct, directErr := pdfPlainText(data)
		if directErr == nil && !looksScanned(direct, len(data)) {
			return direct, nil
		}
		if ocr == nil {
			return direct, nil
		}
		telemetry.OCRFallbacks.Inc()
		recognized, ocrErr := ocr.Recognize(data)
		if ocrErr != nil {
			return direct, nil
		}
		if len(recognized) > len(direct) {
			return recognized, nil
		}
		return direct, nil
	}
}

func pdfPlainText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	r, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return buf.String(), err
	}
	return buf.String(), nil
}

func looksScanned(text string, byteSize int) bool {
	chars := len(strings.TrimSpace(text))
	if chars < scannedMinChars {
		return true
	}
	return byteSize > scannedByteRatio*chars
}
