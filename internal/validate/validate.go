// Package validate performs best-effort syntax checks on generated files,
// chosen by file extension. It is a linter, not a compiler: callers decide
// whether an invalid result blocks a write.
package validate

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"io"
	"path"
	"strings"
)

// Result is the outcome of a check. Reason is empty when Valid.
type Result struct {
	Valid  bool
	Reason string
}

var ok = Result{Valid: true}

func invalid(format string, args ...any) Result {
	return Result{Reason: fmt.Sprintf(format, args...)}
}

// Family groups extensions that share a checking policy.
type Family int

const (
	FamilyNone Family = iota
	FamilyGo
	FamilyJSON
	FamilyMarkup
	FamilyHTML
	FamilyBraces
)

var families = map[string]Family{
	".go":     FamilyGo,
	".json":   FamilyJSON,
	".xml":    FamilyMarkup,
	".csproj": FamilyMarkup,
	".config": FamilyMarkup,
	".svg":    FamilyMarkup,
	".xhtml":  FamilyMarkup,
	".xaml":   FamilyMarkup,
	".plist":  FamilyMarkup,
	".resx":   FamilyMarkup,
	".html":   FamilyHTML,
	".htm":    FamilyHTML,
	".cs":     FamilyBraces,
	".js":     FamilyBraces,
	".ts":     FamilyBraces,
	".jsx":    FamilyBraces,
	".tsx":    FamilyBraces,
	".java":   FamilyBraces,
	".c":      FamilyBraces,
	".cpp":    FamilyBraces,
}

// FamilyOf classifies filename by its extension, case-insensitively.
func FamilyOf(filename string) Family {
	return families[strings.ToLower(path.Ext(strings.ReplaceAll(filename, "\\", "/")))]
}

// Content checks content according to the family of filename.
func Content(content, filename string) Result {
	switch FamilyOf(filename) {
	case FamilyGo:
		return checkGo(content, filename)
	case FamilyJSON:
		return checkJSON(content)
	case FamilyMarkup:
		return checkXML(content)
	case FamilyBraces:
		return checkBraces(content)
	}
	// html is tag soup; anything else has no check
	return ok
}

func checkGo(content, filename string) Result {
	fset := token.NewFileSet()
	if _, err := parser.ParseFile(fset, path.Base(filename), content, parser.AllErrors); err != nil {
		return invalid("Syntax Error: %v", err)
	}
	return ok
}

func checkJSON(content string) Result {
	dec := json.NewDecoder(strings.NewReader(content))
	var v any
	if err := dec.Decode(&v); err != nil {
		var syn *json.SyntaxError
		if errors.As(err, &syn) {
			return invalid("JSON Error: %v (offset %d)", syn, syn.Offset)
		}
		if errors.Is(err, io.EOF) {
			return invalid("JSON Error: empty document (offset 0)")
		}
		return invalid("JSON Error: %v (offset %d)", err, dec.InputOffset())
	}
	// trailing data after the first value
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return invalid("JSON Error: extra data after value (offset %d)", dec.InputOffset())
	}
	return ok
}

func checkXML(content string) Result {
	dec := xml.NewDecoder(bytes.NewReader([]byte(content)))
	dec.Strict = true
	roots := 0
	depth := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return invalid("XML Parsing Error: %v", err)
		}
		switch tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				roots++
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	switch {
	case roots == 0:
		return invalid("XML Parsing Error: no root element found")
	case roots > 1:
		return invalid("XML Parsing Error: junk after document element")
	}
	return ok
}

func checkBraces(content string) Result {
	if strings.TrimSpace(content) == "" {
		return invalid("File is empty")
	}
	open := strings.Count(content, "{")
	closed := strings.Count(content, "}")
	if open != closed {
		return invalid("Unbalanced Braces: { count=%d, } count=%d", open, closed)
	}
	return ok
}
