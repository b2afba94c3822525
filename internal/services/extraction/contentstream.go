package extraction

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// kerningGap is the TJ displacement (thousandths of text space) treated as a word break
const kerningGap = -200

type operandKind int

const (
	operandOther operandKind = iota
	operandString
	operandNumber
	operandArray
)

type operand struct {
	kind  operandKind
	str   string
	num   float64
	items []operand
}

// textWriter assembles decoded text into lines, dropping empty lines
type textWriter struct {
	out   strings.Builder
	line  strings.Builder
	lastY float64
	haveY bool
}

func (w *textWriter) write(s string) {
	w.line.WriteString(s)
}

func (w *textWriter) space() {
	if w.line.Len() == 0 {
		return
	}
	if strings.HasSuffix(w.line.String(), " ") {
		return
	}
	w.line.WriteByte(' ')
}

func (w *textWriter) newline() {
	line := strings.TrimRight(w.line.String(), " ")
	w.line.Reset()
	if strings.TrimSpace(line) == "" {
		return
	}
	if w.out.Len() > 0 {
		w.out.WriteByte('\n')
	}
	w.out.WriteString(line)
}

func (w *textWriter) String() string {
	w.newline()
	return w.out.String()
}

// decodeContentStream extracts readable text from a decoded PDF page content
// stream. Text-showing operators (Tj, TJ, ', ") produce text; positioning
// operators (Td, TD, T*, Tm, ET) produce line breaks when the baseline moves.
func decodeContentStream(content []byte) string {
	var (
		w     textWriter
		stack []operand
		i     int
	)

	for i < len(content) {
		c := content[i]
		switch {
		case isWhite(c):
			i++
		case c == '%':
			for i < len(content) && content[i] != '\n' && content[i] != '\r' {
				i++
			}
		case c == '(':
			s, next := readLiteralString(content, i)
			stack = append(stack, operand{kind: operandString, str: s})
			i = next
		case c == '<' && i+1 < len(content) && content[i+1] == '<':
			stack = append(stack, operand{kind: operandOther})
			i += 2
		case c == '>' && i+1 < len(content) && content[i+1] == '>':
			i += 2
		case c == '<':
			s, next := readHexString(content, i)
			stack = append(stack, operand{kind: operandString, str: s})
			i = next
		case c == '[':
			arr, next := readArray(content, i)
			stack = append(stack, arr)
			i = next
		case c == '/':
			i++
			for i < len(content) && !isWhite(content[i]) && !isDelim(content[i]) {
				i++
			}
			stack = append(stack, operand{kind: operandOther})
		case isNumberStart(c):
			start := i
			i++
			for i < len(content) && (isDigit(content[i]) || content[i] == '.') {
				i++
			}
			n, err := strconv.ParseFloat(string(content[start:i]), 64)
			if err != nil {
				stack = append(stack, operand{kind: operandOther})
			} else {
				stack = append(stack, operand{kind: operandNumber, num: n})
			}
		case isDelim(c):
			i++
		default:
			start := i
			for i < len(content) && !isWhite(content[i]) && !isDelim(content[i]) {
				i++
			}
			op := string(content[start:i])
			if op == "BI" {
				i = skipInlineImage(content, i)
			} else {
				applyOperator(&w, op, stack)
			}
			stack = stack[:0]
		}
	}

	return w.String()
}

func applyOperator(w *textWriter, op string, stack []operand) {
	switch op {
	case "Tj":
		if s, ok := lastString(stack); ok {
			w.write(s)
		}
	case "'", "\"":
		w.newline()
		if s, ok := lastString(stack); ok {
			w.write(s)
		}
	case "TJ":
		if len(stack) == 0 || stack[len(stack)-1].kind != operandArray {
			return
		}
		for _, item := range stack[len(stack)-1].items {
			switch item.kind {
			case operandString:
				w.write(item.str)
			case operandNumber:
				if item.num <= kerningGap {
					w.space()
				}
			}
		}
	case "Td", "TD":
		if len(stack) < 2 {
			return
		}
		tx, ty := stack[len(stack)-2].num, stack[len(stack)-1].num
		if ty != 0 {
			w.newline()
		} else if tx > 0 {
			w.space()
		}
	case "T*":
		w.newline()
	case "Tm":
		if len(stack) < 6 {
			return
		}
		y := stack[len(stack)-1].num
		if w.haveY && y != w.lastY {
			w.newline()
		} else {
			w.space()
		}
		w.lastY, w.haveY = y, true
	case "ET":
		w.newline()
	}
}

func lastString(stack []operand) (string, bool) {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].kind == operandString {
			return stack[i].str, true
		}
	}
	return "", false
}

func readLiteralString(b []byte, i int) (string, int) {
	var raw []byte
	depth := 0
	i++ // opening paren
	for i < len(b) {
		c := b[i]
		switch c {
		case '\\':
			i++
			if i >= len(b) {
				break
			}
			e := b[i]
			switch e {
			case 'n':
				raw = append(raw, '\n')
			case 'r':
				raw = append(raw, '\r')
			case 't':
				raw = append(raw, '\t')
			case 'b', 'f':
			case '(', ')', '\\':
				raw = append(raw, e)
			case '\r':
				if i+1 < len(b) && b[i+1] == '\n' {
					i++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := 0
					n := 0
					for n < 3 && i < len(b) && b[i] >= '0' && b[i] <= '7' {
						v = v*8 + int(b[i]-'0')
						i++
						n++
					}
					raw = append(raw, byte(v))
					continue
				}
				raw = append(raw, e)
			}
			i++
		case '(':
			depth++
			raw = append(raw, c)
			i++
		case ')':
			if depth == 0 {
				return decodeStringBytes(raw), i + 1
			}
			depth--
			raw = append(raw, c)
			i++
		default:
			raw = append(raw, c)
			i++
		}
	}
	return decodeStringBytes(raw), i
}

func readHexString(b []byte, i int) (string, int) {
	var raw []byte
	var hi byte
	half := false
	i++ // opening angle
	for i < len(b) && b[i] != '>' {
		v, ok := hexValue(b[i])
		i++
		if !ok {
			continue
		}
		if !half {
			hi, half = v, true
			continue
		}
		raw = append(raw, hi<<4|v)
		half = false
	}
	if half {
		raw = append(raw, hi<<4)
	}
	if i < len(b) {
		i++ // closing angle
	}
	return decodeStringBytes(raw), i
}

func readArray(b []byte, i int) (operand, int) {
	arr := operand{kind: operandArray}
	i++ // opening bracket
	for i < len(b) {
		c := b[i]
		switch {
		case c == ']':
			return arr, i + 1
		case isWhite(c):
			i++
		case c == '(':
			s, next := readLiteralString(b, i)
			arr.items = append(arr.items, operand{kind: operandString, str: s})
			i = next
		case c == '<':
			s, next := readHexString(b, i)
			arr.items = append(arr.items, operand{kind: operandString, str: s})
			i = next
		case isNumberStart(c):
			start := i
			i++
			for i < len(b) && (isDigit(b[i]) || b[i] == '.') {
				i++
			}
			if n, err := strconv.ParseFloat(string(b[start:i]), 64); err == nil {
				arr.items = append(arr.items, operand{kind: operandNumber, num: n})
			}
		default:
			i++
		}
	}
	return arr, i
}

// decodeStringBytes maps string operands to text. UTF-16BE (BOM or zero high
// bytes) is decoded as such; anything else is treated as single-byte.
func decodeStringBytes(raw []byte) string {
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		return decodeUTF16BE(raw[2:])
	}
	if len(raw) >= 2 && len(raw)%2 == 0 && looksUTF16BE(raw) {
		return decodeUTF16BE(raw)
	}
	var sb strings.Builder
	for _, b := range raw {
		if b < 0x20 && b != '\t' {
			continue
		}
		if b < utf8.RuneSelf {
			sb.WriteByte(b)
			continue
		}
		sb.WriteRune(rune(b))
	}
	return sb.String()
}

func looksUTF16BE(raw []byte) bool {
	for i := 0; i < len(raw); i += 2 {
		if raw[i] != 0 {
			return false
		}
	}
	return true
}

func decodeUTF16BE(raw []byte) string {
	var sb strings.Builder
	for i := 0; i+1 < len(raw); i += 2 {
		r := rune(raw[i])<<8 | rune(raw[i+1])
		if r < 0x20 && r != '\t' {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func skipInlineImage(b []byte, i int) int {
	for i+2 < len(b) {
		if isWhite(b[i]) && b[i+1] == 'E' && b[i+2] == 'I' && (i+3 >= len(b) || isWhite(b[i+3])) {
			return i + 3
		}
		i++
	}
	return len(b)
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func isWhite(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isNumberStart(c byte) bool {
	return isDigit(c) || c == '-' || c == '+' || c == '.'
}
