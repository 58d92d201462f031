// Package document turns uploaded resumes and job descriptions into plain
// text for the matcher.
package document

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"resumatch/internal/errors"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"golang.org/x/net/html"
)

// Content types understood by the extractor.
const (
	TypePlain    = "text/plain"
	TypeMarkdown = "text/markdown"
	TypeHTML     = "text/html"
	TypePDF      = "application/pdf"
	TypeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var extensionTypes = map[string]string{
	".txt":      TypePlain,
	".text":     TypePlain,
	".md":       TypeMarkdown,
	".markdown": TypeMarkdown,
	".html":     TypeHTML,
	".htm":      TypeHTML,
	".pdf":      TypePDF,
	".docx":     TypeDOCX,
}

// Extractor returns the readable text of a document.
type Extractor interface {
	Extract(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// TextExtractor handles plain text, markdown, HTML, PDF and DOCX.
type TextExtractor struct{}

// New returns the default extractor.
func New() *TextExtractor { return &TextExtractor{} }

// Extract decodes data according to its detected type and returns text that
// is guaranteed to be valid UTF-8.
func (TextExtractor) Extract(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	kind := DetectType(name, contentType, data)
	var (
		text string
		err  error
	)
	switch kind {
	case TypePlain, TypeMarkdown:
		text = string(data)
	case TypeHTML:
		text, err = extractHTML(data)
	case TypePDF:
		text, err = extractPDF(data)
	case TypeDOCX:
		text, err = extractDOCX(data)
	default:
		return "", errors.NewDocumentError(errors.ErrCodeDocumentUnsupported,
			fmt.Sprintf("unsupported document type: %s", kind), nil).
			WithContext("document", name)
	}
	if err != nil {
		return "", errors.NewDocumentError(errors.ErrCodeDocumentCorrupt,
			fmt.Sprintf("failed to read %s document", kind), err).
			WithContext("document", name)
	}
	return Sanitize(text), nil
}

// DetectType picks a content type. A declared type wins unless it is the
// generic octet-stream; then the file extension; then content sniffing.
func DetectType(name, declared string, data []byte) string {
	if declared != "" {
		mediaType, _, _ := strings.Cut(declared, ";")
		mediaType = strings.ToLower(strings.TrimSpace(mediaType))
		if mediaType != "application/octet-stream" && mediaType != "" {
			return mediaType
		}
	}
	if t, ok := extensionTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	sniffed, _, _ := strings.Cut(http.DetectContentType(data), ";")
	return sniffed
}

// Sanitize drops invalid UTF-8 sequences and NUL bytes and normalizes line
// endings.
func Sanitize(text string) string {
	text = strings.ToValidUTF8(text, "")
	text = strings.ReplaceAll(text, "\x00", "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

func extractPDF(data []byte) (text string, err error) {
	// The pdf package panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		for _, row := range rows {
			for j, word := range row.Content {
				if j > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(word.S)
			}
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>|<w:br\s*/>|<w:tab\s*/>`)
	xmlTag           = regexp.MustCompile(`<[^>]*>`)
)

func extractDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer doc.Close()

	content := doc.Editable().GetContent()
	content = docxParagraphEnd.ReplaceAllStringFunc(content, func(tag string) string {
		if strings.HasPrefix(tag, "<w:tab") {
			return " "
		}
		return "\n"
	})
	content = xmlTag.ReplaceAllString(content, "")
	return html.UnescapeString(content), nil
}

const htmlBlocks = "p, div, li, tr, h1, h2, h3, h4, h5, h6, section, article, header, footer, dt, dd, pre, blockquote"

func newline() *html.Node {
	return &html.Node{Type: html.TextNode, Data: "\n"}
}

func extractHTML(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, template").Remove()
	doc.Find("br").Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithNodes(newline())
	})
	doc.Find(htmlBlocks).Each(func(_ int, s *goquery.Selection) {
		s.AppendNodes(newline())
	})

	var lines []string
	for _, line := range strings.Split(doc.Find("body").Text(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}
