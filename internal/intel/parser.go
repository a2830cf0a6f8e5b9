// Package intel reads ship tables and matches their intel entries to POF files.
package intel

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

const endMultiText = "$end_multi_text"

var xstr = regexp.MustCompile(`^XSTR\s*\(\s*"((?:[^"\\]|\\.)*)"\s*,\s*-?\d+\s*\)$`)

// unwrap strips an XSTR("text", id) wrapper and surrounding quotes.
func unwrap(v string) string {
	v = strings.TrimSpace(v)
	if m := xstr.FindStringSubmatch(v); m != nil {
		return m[1]
	}
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		return v[1 : len(v)-1]
	}
	return v
}

func stripComment(line string) string {
	if i := strings.Index(line, ";"); i >= 0 && !strings.Contains(line[:i], `"`) {
		return line[:i]
	}
	return line
}

// Parse reads a ship table. Every "$Name:" starts a new entry; entries without a "$POF file:"
// are dropped. Text is decoded from Windows-1252.
func Parse(r io.Reader) ([]Entry, error) {
	sc := bufio.NewScanner(charmap.Windows1252.NewDecoder().Reader(r))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var (
		entries []Entry
		cur     *Entry
		multi   *strings.Builder
	)
	flush := func() {
		if cur != nil && cur.POFFile != "" {
			entries = append(entries, *cur)
		}
		cur = nil
	}

	for sc.Scan() {
		raw := sc.Text()
		if multi != nil {
			if strings.HasPrefix(strings.ToLower(strings.TrimSpace(raw)), endMultiText) {
				cur.Description = unwrap(strings.TrimSpace(multi.String()))
				multi = nil
				continue
			}
			if multi.Len() > 0 {
				multi.WriteByte('\n')
			}
			multi.WriteString(strings.TrimSpace(raw))
			continue
		}

		line := strings.TrimSpace(stripComment(raw))
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if strings.EqualFold(line, "#end") {
				flush()
			}
			continue
		}
		if line[0] != '$' && line[0] != '+' {
			continue
		}
		key, value, ok := strings.Cut(line[1:], ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = unwrap(value)

		if key == "name" && line[0] == '$' {
			flush()
			cur = &Entry{Name: value, Fields: map[string]string{}}
			continue
		}
		if cur == nil {
			continue
		}
		switch key {
		case "short name":
			cur.ShortName = value
		case "pof file":
			cur.POFFile = value
		case "species":
			cur.Species = value
		case "manufacturer":
			cur.Manufacturer = value
		case "class type":
			cur.ClassType = value
		case "type":
			cur.Type = value
		case "length":
			cur.Length = value
		case "tech description", "description":
			multi = &strings.Builder{}
			multi.WriteString(value)
		default:
			cur.Fields[key] = value
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "intel: scan")
	}
	flush()
	return entries, nil
}

// ParseFile reads a ship table from disk.
func ParseFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "intel: read %s", path)
	}
	defer f.Close()
	entries, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "intel: parse %s", path)
	}
	return entries, nil
}

// Table indexes entries by lower-cased POF basename.
type Table struct {
	byPOF map[string]Entry
}

func NewTable(entries []Entry) *Table {
	t := &Table{byPOF: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		key := pofKey(e.POFFile)
		if _, dup := t.byPOF[key]; !dup {
			t.byPOF[key] = e
		}
	}
	return t
}

// LoadTable parses the ship tables at paths into one table. Earlier files win on duplicates.
func LoadTable(paths ...string) (*Table, error) {
	var all []Entry
	for _, p := range paths {
		entries, err := ParseFile(p)
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
	}
	return NewTable(all), nil
}

func pofKey(path string) string {
	return strings.ToLower(filepath.Base(strings.ReplaceAll(path, "\\", "/")))
}

// Lookup returns the entry whose POF file matches the basename of pofPath.
func (t *Table) Lookup(pofPath string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	e, ok := t.byPOF[pofKey(pofPath)]
	return e, ok
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byPOF)
}
