// Package codebook loads named codes from a file.
package codebook

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/verte-zerg/lumalink/internal/signal"
)

// RefPrefix marks a code argument as a codebook reference, e.g. "@door".
const RefPrefix = "@"

var ErrUnknownName = errors.New("unknown code name")

// Entry is one named code.
type Entry struct {
	Name string
	Code string
}

// Book holds named codes in file order.
type Book struct {
	entries []Entry
	index   map[string]int
}

// Load reads a codebook file. Each line is "name = code"; blank lines and
// lines starting with # are ignored.
func Load(path string) (*Book, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only codebook.
			_ = cerr
		}
	}()
	book, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return book, nil
}

// Parse reads codebook lines from r.
func Parse(r io.Reader) (*Book, error) {
	book := &Book{index: map[string]int{}}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, code, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: expected name = code", lineNo)
		}
		name = strings.TrimSpace(name)
		code = strings.TrimSpace(code)
		if !ValidName(name) {
			return nil, fmt.Errorf("line %d: invalid name %q", lineNo, name)
		}
		if err := signal.ValidateCode(code); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if _, dup := book.index[name]; dup {
			return nil, fmt.Errorf("line %d: duplicate name %q", lineNo, name)
		}
		book.index[name] = len(book.entries)
		book.entries = append(book.entries, Entry{Name: name, Code: code})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return book, nil
}

// ValidName reports whether name uses only lowercase ASCII letters, digits,
// '-' and '_'.
func ValidName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		ch := name[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9', ch == '-', ch == '_':
		default:
			return false
		}
	}
	return true
}

// Lookup returns the code stored under name.
func (b *Book) Lookup(name string) (string, bool) {
	i, ok := b.index[name]
	if !ok {
		return "", false
	}
	return b.entries[i].Code, true
}

// Entries returns the codes in file order.
func (b *Book) Entries() []Entry {
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Resolve returns value unchanged unless it starts with RefPrefix, in which
// case the named code is loaded from the codebook at path.
func Resolve(value, path string) (string, error) {
	name, ok := strings.CutPrefix(value, RefPrefix)
	if !ok {
		return value, nil
	}
	book, err := Load(path)
	if err != nil {
		return "", fmt.Errorf("failed to load codebook: %w", err)
	}
	code, found := book.Lookup(name)
	if !found {
		return "", fmt.Errorf("%w: %q", ErrUnknownName, name)
	}
	return code, nil
}
