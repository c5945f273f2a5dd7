package ingest

import (
	"bytes"
	"log/slog"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText converts upload bytes to text. Anything that is not valid UTF-8 is
// read as Windows-1252, the usual encoding of bank exports that are not UTF-8.
func decodeText(content []byte) string {
	content = bytes.TrimPrefix(content, utf8BOM)
	if utf8.Valid(content) {
		return string(content)
	}

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(content)
	if err != nil {
		slog.Warn("Failed to decode upload as Windows-1252", "error", err)
		return string(content)
	}
	return string(decoded)
}
