// Package catalog parses a document of named analytical statements into an
// ordered, uniquely-keyed registry.
//
// The document format is a sequence of blocks, each opened by a marker line
// of the form "-- name: <identifier>". Everything up to the next marker (or
// end of document) is the block's statement, kept verbatim including embedded
// comments and blank lines.
package catalog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// Query is a single named analytical statement. Immutable once parsed.
type Query struct {
	// Name uniquely identifies the query within the catalog.
	Name string

	// SQL is the verbatim statement text (outer whitespace trimmed).
	SQL string

	// Line is the 1-based line number of the marker in the source document.
	Line int
}

// Catalog is an ordered registry of named queries.
type Catalog struct {
	byName map[string]*Query
	order  []string
}

// markerPattern matches a block marker line: "-- name: identifier".
var markerPattern = regexp.MustCompile(`^\s*--\s*name:\s*(\S+)\s*$`)

// DuplicateNameError reports two blocks sharing an identifier.
type DuplicateNameError struct {
	Name string
	Line int
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate query name %q at line %d", e.Name, e.Line)
}

// MalformedDocumentError reports statement text appearing before the first
// block marker.
type MalformedDocumentError struct {
	Line int
}

func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("malformed catalog document: non-blank text before first name marker at line %d", e.Line)
}

// Parse reads a catalog document and returns the ordered registry.
func Parse(r io.Reader) (*Catalog, error) {
	cat := &Catalog{byName: make(map[string]*Query)}

	var current *Query
	var buf []string

	flush := func() {
		if current == nil {
			return
		}
		current.SQL = strings.TrimSpace(strings.Join(buf, "\n"))
		buf = buf[:0]
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if m := markerPattern.FindStringSubmatch(line); m != nil {
			flush()

			name := m[1]
			if _, exists := cat.byName[name]; exists {
				return nil, &DuplicateNameError{Name: name, Line: lineNo}
			}

			current = &Query{Name: name, Line: lineNo}
			cat.byName[name] = current
			cat.order = append(cat.order, name)
			continue
		}

		if current == nil {
			// Text before the first marker is ignored only when blank.
			if strings.TrimSpace(line) != "" {
				return nil, &MalformedDocumentError{Line: lineNo}
			}
			continue
		}

		buf = append(buf, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog document: %w", err)
	}

	flush()
	return cat, nil
}

// ParseFile parses a catalog document from a file.
func ParseFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	cat, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

// Get looks up a query by name.
func (c *Catalog) Get(name string) (*Query, bool) {
	q, ok := c.byName[name]
	return q, ok
}

// Names returns all query names in source order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of queries in the catalog.
func (c *Catalog) Len() int {
	return len(c.order)
}

// Serialize renders the catalog back into document form. Parsing the output
// yields an identical catalog.
func (c *Catalog) Serialize() string {
	var b strings.Builder
	for _, name := range c.order {
		q := c.byName[name]
		fmt.Fprintf(&b, "-- name: %s\n", q.Name)
		if q.SQL != "" {
			b.WriteString(q.SQL)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}
