package pongo

import (
	"io"
	"strings"
)

// templateScan records the identifiers a template graph calls as functions and
// every identifier it mentions or binds in any other position.
type templateScan struct {
	calls    map[string]struct{}
	bindings map[string]struct{}
}

// expressionKeywords can precede "(" without being function calls.
var expressionKeywords = map[string]struct{}{
	"and": {}, "or": {}, "not": {}, "in": {}, "is": {}, "if": {}, "elif": {},
	"else": {}, "as": {}, "from": {}, "only": {}, "with": {}, "true": {},
	"false": {}, "True": {}, "False": {}, "nil": {}, "None": {},
}

// referenceTags name a template through their first string argument.
var referenceTags = map[string]struct{}{
	"include": {}, "extends": {}, "import": {},
}

func newTemplateScan() *templateScan {
	return &templateScan{
		calls:    make(map[string]struct{}),
		bindings: make(map[string]struct{}),
	}
}

// scanGraph scans source and every template it names literally through
// include, extends or import. fetch returns "" when a reference cannot be read.
func scanGraph(source string, fetch func(name string) string) *templateScan {
	scan := newTemplateScan()
	visited := map[string]struct{}{}
	pending := scan.add(source)
	for len(pending) > 0 {
		name := pending[0]
		pending = pending[1:]
		if _, seen := visited[name]; seen {
			continue
		}
		visited[name] = struct{}{}
		if src := fetch(name); src != "" {
			pending = append(pending, scan.add(src)...)
		}
	}
	return scan
}

// undefined returns the alphabetically first called name that is neither
// bound in the graph nor resolved by known, or "" when every call resolves.
func (s *templateScan) undefined(known func(name string) bool) string {
	first := ""
	for name := range s.calls {
		if _, ok := s.bindings[name]; ok {
			continue
		}
		if known(name) {
			continue
		}
		if first == "" || name < first {
			first = name
		}
	}
	return first
}

// add scans one template source and returns the names it references.
func (s *templateScan) add(src string) []string {
	var refs []string
	for i := 0; i < len(src); {
		open := strings.IndexByte(src[i:], '{')
		if open < 0 || i+open+1 >= len(src) {
			break
		}
		start := i + open
		switch src[start+1] {
		case '#':
			end := strings.Index(src[start+2:], "#}")
			if end < 0 {
				return refs
			}
			i = start + 2 + end + 2
		case '{', '%':
			closer := "}}"
			if src[start+1] == '%' {
				closer = "%}"
			}
			end := findCloser(src, start+2, closer)
			if end < 0 {
				return refs
			}
			tag, ref := s.region(src[start+2:end], src[start+1] == '%')
			if ref != "" {
				refs = append(refs, ref)
			}
			i = end + 2
			if tag == "verbatim" || tag == "comment" {
				i = skipBlock(src, i, "end"+tag)
			}
		default:
			i = start + 1
		}
	}
	return refs
}

// region classifies the identifiers of one {{ }} or {% %} body. For tags it
// returns the tag name and the first string literal of reference tags.
func (s *templateScan) region(body string, isTag bool) (string, string) {
	var (
		tag      string
		ref      string
		prevWord string
		prevChar byte
	)
	for i := 0; i < len(body); {
		c := body[i]
		switch {
		case c == '"' || c == '\'':
			end := skipString(body, i)
			if ref == "" && tag != "" {
				if _, ok := referenceTags[tag]; ok {
					ref = body[i+1 : end-1]
				}
			}
			prevChar, prevWord = c, ""
			i = end
		case isIdentStart(c):
			j := i + 1
			for j < len(body) && isIdentPart(body[j]) {
				j++
			}
			word := body[i:j]
			switch {
			case isTag && tag == "":
				tag = word
			case prevChar == '.' || prevChar == '|':
			case prevWord == "macro":
				s.bindings[word] = struct{}{}
			default:
				if _, ok := expressionKeywords[word]; ok {
					break
				}
				if nextNonSpace(body, j) == '(' {
					s.calls[word] = struct{}{}
				} else {
					s.bindings[word] = struct{}{}
				}
			}
			prevChar, prevWord = 'a', word
			i = j
		case c >= '0' && c <= '9':
			j := i + 1
			for j < len(body) && (isIdentPart(body[j]) || body[j] == '.') {
				j++
			}
			prevChar, prevWord = '0', ""
			i = j
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		default:
			prevChar, prevWord = c, ""
			i++
		}
	}
	return tag, strings.TrimSpace(ref)
}

func findCloser(src string, from int, closer string) int {
	for i := from; i+1 < len(src); {
		switch src[i] {
		case '"', '\'':
			i = skipString(src, i)
		default:
			if src[i:i+2] == closer {
				return i
			}
			i++
		}
	}
	return -1
}

// skipString returns the index just past the string literal starting at i.
func skipString(s string, i int) int {
	quote := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case quote:
			return j + 1
		}
	}
	return len(s)
}

// skipBlock moves past the {% endName %} tag that closes a raw block.
func skipBlock(src string, from int, endName string) int {
	for i := from; ; {
		open := strings.Index(src[i:], "{%")
		if open < 0 {
			return len(src)
		}
		start := i + open + 2
		end := strings.Index(src[start:], "%}")
		if end < 0 {
			return len(src)
		}
		body := strings.Trim(strings.TrimSpace(src[start:start+end]), "-")
		if strings.TrimSpace(body) == endName {
			return start + end + 2
		}
		i = start
	}
}

func nextNonSpace(s string, i int) byte {
	for ; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return s[i]
	}
	return 0
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func readSource(r io.Reader) string {
	if r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if closer, ok := r.(io.Closer); ok {
		_ = closer.Close()
	}
	if err != nil {
		return ""
	}
	return string(data)
}
