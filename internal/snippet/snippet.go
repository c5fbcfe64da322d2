package snippet

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// A Snippet is a parsed insertion template: literal text interleaved with
// tabstop markers ("$1") and placeholders with default content ("${2:expr}").
type Snippet struct {
	Elements []Element
}

// Element is one node of the snippet tree. The three implementations are
// Text, Tabstop and Placeholder; Placeholder recurses into child elements.
type Element interface {
	fmt.Stringer
	// Text returns the flattened literal text of the element. Tabstops
	// contribute nothing.
	Text() string
	// Len is the byte length of the flattened text.
	Len() int
}

type Text struct {
	Value string
}

type Tabstop struct {
	Num int
}

type Placeholder struct {
	Num      int
	Elements []Element
}

// Tab is the position of one tabstop or placeholder in the flattened text.
// A tabstop has Start == End, a placeholder spans its default content.
type Tab struct {
	Num   int
	Start int
	End   int
}

var tabstopRegexps = []*regexp.Regexp{
	regexp.MustCompile(`^\$(\d+)`),
	regexp.MustCompile(`^\$\{(\d+)\}`),
}

var placeholderRegexp = regexp.MustCompile(`^\$\{(\d+):(.*?)\}`)

// Parse parses an LSP style snippet template. Parsing is total: it stops at
// the first position where no element can be recognized and returns whatever
// prefix was parsed, it never fails on malformed trailing input.
func Parse(template string) Snippet {
	elements, _ := parseElements(template, 0, "$\\", "}")
	return Snippet{Elements: elements}
}

// Tried in order at each position: tabstop, placeholder, text. escs are the
// characters that terminate text, looseEscs may additionally be escaped with
// a backslash without terminating it.
func parseElements(s string, pos int, escs, looseEscs string) ([]Element, int) {
	var elements []Element
	for pos < len(s) {
		if el, end, ok := parseTabstop(s, pos); ok {
			elements = append(elements, el)
			pos = end
			continue
		}
		if el, end, ok := parsePlaceholder(s, pos); ok {
			elements = append(elements, el)
			pos = end
			continue
		}
		if el, end, ok := parseText(s, pos, escs, looseEscs); ok {
			elements = append(elements, el)
			pos = end
			continue
		}
		break
	}
	return elements, pos
}

func parseTabstop(s string, pos int) (Element, int, bool) {
	for _, re := range tabstopRegexps {
		m := re.FindStringSubmatchIndex(s[pos:])
		if m == nil {
			continue
		}
		num, err := strconv.Atoi(s[pos+m[2] : pos+m[3]])
		if err != nil {
			continue
		}
		return Tabstop{Num: num}, pos + m[1], true
	}
	return nil, 0, false
}

func parsePlaceholder(s string, pos int) (Element, int, bool) {
	// The regexp only confirms a closing brace exists and locates the
	// content start; the content itself is parsed recursively so nested
	// placeholders consume their own closing braces.
	m := placeholderRegexp.FindStringSubmatchIndex(s[pos:])
	if m == nil {
		return nil, 0, false
	}
	num, err := strconv.Atoi(s[pos+m[2] : pos+m[3]])
	if err != nil {
		return nil, 0, false
	}
	if m[4] == m[5] {
		// Empty default content still carries the tabstop.
		return Placeholder{Num: num, Elements: []Element{Text{}}}, pos + m[1], true
	}
	elements, end := parseElements(s, pos+m[4], "$}\\", "")
	return Placeholder{Num: num, Elements: elements}, end + 1, true
}

func parseText(s string, pos int, escs, looseEscs string) (Element, int, bool) {
	var b strings.Builder
	end := pos
	for end < len(s) {
		if s[end] == '\\' && end+1 < len(s) {
			c := s[end+1]
			if strings.IndexByte(escs, c) >= 0 || strings.IndexByte(looseEscs, c) >= 0 {
				b.WriteByte(c)
				end += 2
				continue
			}
		}
		if strings.IndexByte(escs, s[end]) >= 0 {
			break
		}
		b.WriteByte(s[end])
		end++
	}
	if b.Len() == 0 {
		return nil, 0, false
	}
	return Text{Value: b.String()}, end, true
}

// IsEmpty reports whether the element flattens to no text.
func IsEmpty(el Element) bool {
	return el.Len() == 0
}

func (sn Snippet) Text() string {
	var b strings.Builder
	for _, el := range sn.Elements {
		b.WriteString(el.Text())
	}
	return b.String()
}

func (sn Snippet) String() string {
	var b strings.Builder
	for _, el := range sn.Elements {
		b.WriteString(el.String())
	}
	return b.String()
}

// Tabs lists every tabstop and placeholder with its span in the flattened
// text, starting at offset start. A placeholder is listed before the tabs of
// its own content.
func (sn Snippet) Tabs(start int) []Tab {
	return elementsTabs(sn.Elements, start)
}

func elementsTabs(elements []Element, start int) []Tab {
	var tabs []Tab
	pos := start
	for _, el := range elements {
		switch el := el.(type) {
		case Text:
			pos += len(el.Value)
		case Tabstop:
			tabs = append(tabs, Tab{Num: el.Num, Start: pos, End: pos})
		case Placeholder:
			childTabs := elementsTabs(el.Elements, pos)
			end := pos
			for _, child := range el.Elements {
				end += child.Len()
			}
			tabs = append(tabs, Tab{Num: el.Num, Start: pos, End: end})
			tabs = append(tabs, childTabs...)
			pos = end
		}
	}
	return tabs
}

func (t Text) Text() string { return t.Value }
func (t Text) Len() int     { return len(t.Value) }

func (t Text) String() string { return t.Value }

func (t Tabstop) Text() string { return "" }
func (t Tabstop) Len() int     { return 0 }

func (t Tabstop) String() string { return "$" + strconv.Itoa(t.Num) }

func (p Placeholder) Text() string {
	var b strings.Builder
	for _, el := range p.Elements {
		b.WriteString(el.Text())
	}
	return b.String()
}

func (p Placeholder) Len() int {
	n := 0
	for _, el := range p.Elements {
		n += el.Len()
	}
	return n
}

func (p Placeholder) String() string {
	var b strings.Builder
	for _, el := range p.Elements {
		b.WriteString(el.String())
	}
	return fmt.Sprintf("${%d:%s}", p.Num, b.String())
}
