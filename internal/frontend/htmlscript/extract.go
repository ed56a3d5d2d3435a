// Package htmlscript finds inline JavaScript in HTML documents.
package htmlscript

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Script is one inline <script> element.
type Script struct {
	// Start and End are the byte offsets of the script body in the document.
	Start int
	End   int
	// Source is the whole document with everything outside the script body
	// blanked to spaces, newlines kept, so positions in a tree parsed from
	// it are positions in the document.
	Source []byte
}

// Body returns the script text itself.
func (s Script) Body() []byte { return s.Source[s.Start:s.End] }

// Extract returns the inline scripts of doc in document order. Scripts with
// a src attribute and no body, and scripts whose type is not JavaScript,
// are skipped.
func Extract(doc []byte) ([]Script, error) {
	z := html.NewTokenizer(bytes.NewReader(doc))
	var (
		scripts  []Script
		offset   int
		inScript bool
	)
	for {
		tt := z.Next()
		size := len(z.Raw())
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, err
			}
			return scripts, nil
		case html.StartTagToken:
			tok := z.Token()
			inScript = tok.Data == "script" && isJavaScript(tok.Attr)
		case html.TextToken:
			if inScript && size > 0 {
				scripts = append(scripts, Script{
					Start:  offset,
					End:    offset + size,
					Source: blankOutside(doc, offset, offset+size),
				})
			}
			inScript = false
		default:
			inScript = false
		}
		offset += size
	}
}

func isJavaScript(attrs []html.Attribute) bool {
	for _, a := range attrs {
		if a.Key != "type" {
			continue
		}
		t := strings.ToLower(strings.TrimSpace(a.Val))
		switch {
		case t == "", t == "module":
			return true
		case strings.Contains(t, "javascript"), strings.Contains(t, "ecmascript"):
			return true
		default:
			return false
		}
	}
	return true
}

func blankOutside(doc []byte, start, end int) []byte {
	out := make([]byte, len(doc))
	for i, b := range doc {
		if (i >= start && i < end) || b == '\n' {
			out[i] = b
		} else {
			out[i] = ' '
		}
	}
	return out
}
