package statement

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Format names a statement file format.
type Format string

// Known formats.
const (
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatOFX   Format = "ofx"
	FormatExcel Format = "excel"
	FormatPDF   Format = "pdf"
)

// FormatInfo describes a format for help output.
type FormatInfo struct {
	Format      Format
	Description string
	Extensions  []string
	Binary      bool // Parser wants the file bytes, not decoded text
}

// KnownFormats lists every recognized format.
var KnownFormats = []FormatInfo{
	{Format: FormatCSV, Description: "Comma-separated values: header row, then date,description,amount", Extensions: []string{".csv"}},
	{Format: FormatJSON, Description: "Array of transaction objects or an object with a transactions array", Extensions: []string{".json"}},
	{Format: FormatOFX, Description: "Open Financial Exchange / Quicken bank and card statements", Extensions: []string{".ofx", ".qfx"}},
	{Format: FormatExcel, Description: "Microsoft Excel spreadsheet", Extensions: []string{".xlsx", ".xls"}, Binary: true},
	{Format: FormatPDF, Description: "Portable Document Format bank statement", Extensions: []string{".pdf"}, Binary: true},
}

var contentTypes = map[string]Format{
	"text/csv":                 FormatCSV,
	"application/csv":          FormatCSV,
	"application/json":         FormatJSON,
	"application/x-ofx":        FormatOFX,
	"application/vnd.intu.qfx": FormatOFX,
	"application/vnd.ms-excel": FormatExcel,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": FormatExcel,
	"application/pdf": FormatPDF,
}

// ParseFormat reads a format name as given on the command line.
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, info := range KnownFormats {
		if string(info.Format) == name {
			return info.Format, nil
		}
		for _, ext := range info.Extensions {
			if ext == "."+name {
				return info.Format, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// IsBinary reports whether a format's parser reads the raw file bytes.
func IsBinary(f Format) bool {
	for _, info := range KnownFormats {
		if info.Format == f {
			return info.Binary
		}
	}
	return false
}

// Detect picks a format from the file extension, falling back to the content type.
func Detect(filename, contentType string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, info := range KnownFormats {
		for _, known := range info.Extensions {
			if ext == known {
				return info.Format, nil
			}
		}
	}

	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if f, ok := contentTypes[mediaType]; ok {
		return f, nil
	}

	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
}

// Registry maps formats to parsers.
type Registry struct {
	parsers map[Format]Parser
}

// NewRegistry registers the given parsers; later parsers replace earlier ones for the same format.
func NewRegistry(parsers ...Parser) *Registry {
	r := &Registry{parsers: make(map[Format]Parser, len(parsers))}
	for _, p := range parsers {
		r.Register(p)
	}
	return r
}

// DefaultRegistry holds every built-in parser.
func DefaultRegistry() *Registry {
	return NewRegistry(NewCSVParser(), NewJSONParser(), NewOFXParser(), NewExcelParser(), NewPDFParser())
}

// Register adds or replaces the parser for its format.
func (r *Registry) Register(p Parser) {
	r.parsers[p.Format()] = p
}

// Parser returns the parser for a format.
func (r *Registry) Parser(f Format) (Parser, error) {
	p, ok := r.parsers[f]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	return p, nil
}

// Supports reports whether a parser is registered for the format.
func (r *Registry) Supports(f Format) bool {
	_, ok := r.parsers[f]
	return ok
}

// Formats lists registered formats in name order.
func (r *Registry) Formats() []Format {
	formats := make([]Format, 0, len(r.parsers))
	for f := range r.parsers {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}
