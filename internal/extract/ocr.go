package extract

import (
	"bytes"
	"fmt"
	"image/png"
	"log"
	"strings"

	fitz "github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"
)

// OCR recognizes text in a scanned PDF. Implementations return whatever they
// could read; partial output is still useful.
type OCR interface {
	Recognize(pdfBytes []byte) (string, error)
}

// TesseractOCR rasterizes PDF pages with MuPDF and feeds them to Tesseract.
type TesseractOCR struct {
	languages []string
	maxPages  int
	logger    *log.Logger
}

func NewTesseractOCR(languages []string, maxPages int, logger *log.Logger) *TesseractOCR {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	if maxPages <= 0 {
		maxPages = 20
	}
	return &TesseractOCR{languages: languages, maxPages: maxPages, logger: logger}
}

func (t *TesseractOCR) Recognize(pdfBytes []byte) (string, error) {
	doc, err := fitz.NewFromMemory(pdfBytes)
	if err != nil {
		return "", fmt.Errorf("open pdf for ocr: %w", err)
	}
	defer doc.Close()

	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(t.languages...); err != nil {
		return "", fmt.Errorf("set ocr languages: %w", err)
	}

	pages := doc.NumPage()
	if pages > t.maxPages {
		pages = t.maxPages
	}

	var sb strings.Builder
	for i := 0; i < pages; i++ {
		img, err := doc.Image(i)
		if err != nil {
			t.logger.Printf("ocr: render page %d: %v", i, err)
			continue
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			t.logger.Printf("ocr: encode page %d: %v", i, err)
			continue
		}
		if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
			t.logger.Printf("ocr: load page %d: %v", i, err)
			continue
		}
		text, err := client.Text()
		if err != nil {
			t.logger.Printf("ocr: recognize page %d: %v", i, err)
			continue
		}
		sb.WriteString(text)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}
