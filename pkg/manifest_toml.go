package rema

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

var (
	tomlVersionLine = regexp.MustCompile(`^(\s*version\s*=\s*)("[^"]*"|'[^']*')(.*)$`)
	tomlTableHeader = regexp.MustCompile(`^\s*\[([^\[\]]+)\]\s*(#.*)?$`)
	tomlArrayHeader = regexp.MustCompile(`^\s*\[\[`)
)

// tomlEditor handles Cargo.toml and pyproject.toml. The document is decoded
// to find the owning table and the single version line is rewritten in
// place, so comments and layout survive.
type tomlEditor struct{}

func tomlTable(data []byte, table string) (map[string]any, error) {
	var doc map[string]any
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, err
	}
	if table == "" {
		return doc, nil
	}
	cur := doc
	for _, part := range strings.Split(table, ".") {
		next, ok := cur[part].(map[string]any)
		if !ok {
			return nil, nil
		}
		cur = next
	}
	return cur, nil
}

func tomlString(f *ManifestFile, data []byte, key string) (string, error) {
	t, err := tomlTable(data, f.Table)
	if err != nil {
		return "", err
	}
	raw, ok := t[key]
	if !ok {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%q field is not a string", key)
	}
	return s, nil
}

func (tomlEditor) readVersion(f *ManifestFile, data []byte) (string, error) {
	return tomlString(f, data, "version")
}

func (tomlEditor) readName(f *ManifestFile, data []byte) (string, error) {
	return tomlString(f, data, "name")
}

func normalizeTableName(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(p), `"'`)
	}
	return strings.Join(parts, ".")
}

// tomlScan follows the lines of a TOML document far enough to tell whether
// a line starts inside a multi-line array, inline table or string.
type tomlScan struct {
	depth int
	delim string // `"""` or `'''` while inside a multi-line string
}

func (s *tomlScan) inValue() bool {
	return s.depth > 0 || s.delim != ""
}

func (s *tomlScan) feed(line string) {
	for i := 0; i < len(line); {
		if s.delim != "" {
			j := strings.Index(line[i:], s.delim)
			if j < 0 {
				return
			}
			i += j + len(s.delim)
			s.delim = ""
			continue
		}
		rest := line[i:]
		switch c := line[i]; {
		case c == '#':
			return
		case strings.HasPrefix(rest, `"""`), strings.HasPrefix(rest, "'''"):
			s.delim = rest[:3]
			i += 3
		case c == '"':
			i++
			for i < len(line) && line[i] != '"' {
				if line[i] == '\\' {
					i++
				}
				i++
			}
			i++
		case c == '\'':
			j := strings.IndexByte(line[i+1:], '\'')
			if j < 0 {
				return
			}
			i += j + 2
		case c == '[' || c == '{':
			s.depth++
			i++
		case c == ']' || c == '}':
			if s.depth > 0 {
				s.depth--
			}
			i++
		default:
			i++
		}
	}
}

func (e tomlEditor) setVersion(f *ManifestFile, data []byte, v Version) ([]byte, error) {
	if _, err := tomlTable(data, f.Table); err != nil {
		return nil, err
	}

	lines := strings.Split(string(data), "\n")
	quoted := strconv.Quote(v.String())
	current := ""
	header := -1
	replaced := false
	var scan tomlScan
	for i, line := range lines {
		continued := scan.inValue()
		scan.feed(line)
		if continued {
			continue
		}
		if tomlArrayHeader.MatchString(line) {
			current = "[["
			continue
		}
		if m := tomlTableHeader.FindStringSubmatch(line); m != nil {
			current = normalizeTableName(m[1])
			if current == f.Table {
				header = i
			}
			continue
		}
		if current != f.Table {
			continue
		}
		if m := tomlVersionLine.FindStringSubmatch(line); m != nil {
			lines[i] = m[1] + quoted + m[3]
			replaced = true
			break
		}
	}

	if !replaced {
		entry := "version = " + quoted
		switch {
		case f.Table == "":
			lines = append([]string{entry}, lines...)
		case header >= 0:
			lines = append(lines[:header+1], append([]string{entry}, lines[header+1:]...)...)
		default:
			return nil, fmt.Errorf("table [%s] not found", f.Table)
		}
	}

	out := []byte(strings.Join(lines, "\n"))
	got, err := e.readVersion(f, out)
	if err != nil {
		return nil, err
	}
	if got != v.String() {
		return nil, errors.New("version field did not take the new value; it may be declared in an unsupported form")
	}
	return out, nil
}
