package parse

import (
	"strconv"
	"strings"
	"unicode"
)

type itemKind int

const (
	itemNumber itemKind = iota
	itemWord
	itemColon
	itemSlash
	itemDash
	itemComma
	itemPlus
)

type item struct {
	kind itemKind
	text string
	num  float64
}

// scan splits input into number, word and separator items. Words are
// lowercased; periods and apostrophes inside words are dropped so that
// "p.m." and "o'clock" read as "pm" and "oclock". Any other rune fails
// the scan.
func scan(input string) ([]item, bool) {
	var items []item
	rs := []rune(input)
	i := 0
	for i < len(rs) {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case unicode.IsDigit(r):
			j := i
			for j < len(rs) && unicode.IsDigit(rs[j]) {
				j++
			}
			if j+1 < len(rs) && rs[j] == '.' && unicode.IsDigit(rs[j+1]) {
				j++
				for j < len(rs) && unicode.IsDigit(rs[j]) {
					j++
				}
			}
			text := string(rs[i:j])
			n, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, false
			}
			items = append(items, item{kind: itemNumber, text: text, num: n})
			i = j
		case unicode.IsLetter(r):
			var b strings.Builder
			j := i
			for j < len(rs) && (unicode.IsLetter(rs[j]) || rs[j] == '.' || rs[j] == '\'') {
				if rs[j] != '.' && rs[j] != '\'' {
					b.WriteRune(unicode.ToLower(rs[j]))
				}
				j++
			}
			items = append(items, item{kind: itemWord, text: b.String()})
			i = j
		case r == ':':
			items = append(items, item{kind: itemColon, text: ":"})
			i++
		case r == '/':
			items = append(items, item{kind: itemSlash, text: "/"})
			i++
		case r == '-':
			items = append(items, item{kind: itemDash, text: "-"})
			i++
		case r == ',':
			items = append(items, item{kind: itemComma, text: ","})
			i++
		case r == '+':
			items = append(items, item{kind: itemPlus, text: "+"})
			i++
		case r == '.':
			i++
		default:
			return nil, false
		}
	}
	return items, true
}

// isIntItem reports whether a number item carries a whole number.
func isIntItem(it item) bool {
	return it.kind == itemNumber && !strings.Contains(it.text, ".")
}

// cursor walks an item slice with single-token lookahead.
type cursor struct {
	items []item
	pos   int
}

func (c *cursor) done() bool {
	return c.pos >= len(c.items)
}

func (c *cursor) peek() (item, bool) {
	if c.done() {
		return item{}, false
	}
	return c.items[c.pos], true
}

func (c *cursor) next() (item, bool) {
	it, ok := c.peek()
	if ok {
		c.pos++
	}
	return it, ok
}

func (c *cursor) acceptWord(s string) bool {
	if it, ok := c.peek(); ok && it.kind == itemWord && it.text == s {
		c.pos++
		return true
	}
	return false
}
