package extract

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"code.sajari.com/docconv"
	"github.com/xuri/excelize/v2"
)

// DecodeFunc turns raw file bytes into plain text.
type DecodeFunc func(data []byte) (string, error)

// defaultDecoders builds the extension -> decoder registry. Unrecognized
// extensions fall back to decodePlain at dispatch time.
func defaultDecoders(ocr OCR) map[string]DecodeFunc {
	reg := map[string]DecodeFunc{}
	for _, ext := range []string{"txt", "md", "csv", "tsv", "log", "json", "yaml", "yml", "xml", "html"} {
		reg[ext] = decodePlain
	}
	for _, ext := range []string{"xlsx", "xlsm"} {
		reg[ext] = decodeWorkbook
	}
	reg["docx"] = richDocDecoder("application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	reg["doc"] = richDocDecoder("application/msword")
	reg["rtf"] = richDocDecoder("application/rtf")
	reg["odt"] = richDocDecoder("application/vnd.oasis.opendocument.text")
	reg["pptx"] = richDocDecoder("application/vnd.openxmlformats-officedocument.presentationml.presentation")
	reg["pdf"] = pdfDecoder(ocr)
	return reg
}

// decodePlain is a best-effort UTF-8 decode, dropping invalid sequences so
// binary junk cannot leak into prompts.
func decodePlain(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	return strings.ToValidUTF8(string(data), ""), nil
}

// decodeWorkbook renders a spreadsheet sheet by sheet as tab-delimited rows,
// each sheet prefixed with a header line.
func decodeWorkbook(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		sb.WriteString("## Sheet: " + sheet + "\n")
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteByte('\n')
		}
	}
	return sb.String(), nil
}

// richDocDecoder extracts raw text from word-processor formats via docconv.
func richDocDecoder(mimeType string) DecodeFunc {
	return func(data []byte) (string, error) {
		res, err := docconv.Convert(bytes.NewReader(data), mimeType, true)
		if err != nil {
			return "", fmt.Errorf("convert document: %w", err)
		}
		return res.Body, nil
	}
}
