package expression

import "strings"

// TokenKind classifies a lexical token of a definition.
type TokenKind int

const (
	TokenOther TokenKind = iota
	TokenIdent
	TokenNumber
	TokenString
)

// Token is a lexical token with its byte offset in the source text.
type Token struct {
	Kind TokenKind
	Text string
	Pos  int
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// IsIdentifier reports whether name can be used as a variable in a definition.
func IsIdentifier(name string) bool {
	if name == "" || !isIdentStart(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isIdentPart(name[i]) {
			return false
		}
	}
	return true
}

// Tokenize splits text into identifiers, numeric literals, string literals
// and single-byte punctuation. Whitespace is dropped.
func Tokenize(text string) []Token {
	var toks []Token
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isIdentStart(c):
			j := i + 1
			for j < len(text) && isIdentPart(text[j]) {
				j++
			}
			toks = append(toks, Token{Kind: TokenIdent, Text: text[i:j], Pos: i})
			i = j
		case isDigit(c) || (c == '.' && i+1 < len(text) && isDigit(text[i+1])):
			j := scanNumber(text, i)
			toks = append(toks, Token{Kind: TokenNumber, Text: text[i:j], Pos: i})
			i = j
		case c == '"' || c == '\'':
			j := i + 1
			for j < len(text) && text[j] != c {
				if text[j] == '\\' {
					j++
				}
				j++
			}
			if j < len(text) {
				j++
			} else {
				j = len(text)
			}
			toks = append(toks, Token{Kind: TokenString, Text: text[i:j], Pos: i})
			i = j
		default:
			toks = append(toks, Token{Kind: TokenOther, Text: text[i : i+1], Pos: i})
			i++
		}
	}
	return toks
}

// scanNumber consumes a numeric literal including an exponent, so that the
// "e" of 1e-5 is never mistaken for an identifier.
func scanNumber(text string, i int) int {
	j := i
	for j < len(text) && (isIdentPart(text[j]) || text[j] == '.') {
		if (text[j] == 'e' || text[j] == 'E') && j+1 < len(text) && (text[j+1] == '+' || text[j+1] == '-') {
			j += 2
			continue
		}
		j++
	}
	return j
}

// Identifiers returns the user identifiers referenced by text in order of
// first occurrence. Built-in function names and keywords are stripped.
func Identifiers(text string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, tok := range Tokenize(text) {
		if tok.Kind != TokenIdent || IsBuiltin(tok.Text) || seen[tok.Text] {
			continue
		}
		seen[tok.Text] = true
		names = append(names, tok.Text)
	}
	return names
}

// References reports whether text mentions name as a whole token.
func References(text, name string) bool {
	for _, tok := range Tokenize(text) {
		if tok.Kind == TokenIdent && tok.Text == name {
			return true
		}
	}
	return false
}

// RenameToken replaces every whole-token occurrence of oldName by newName.
// A token is whole when it is bounded by the start/end of text or by a
// non-identifier character on both sides.
func RenameToken(text, oldName, newName string) string {
	return RenameTokens(text, map[string]string{oldName: newName})
}

// RenameTokens applies several whole-token substitutions in a single pass,
// so swaps such as {a: b, b: a} behave.
func RenameTokens(text string, renames map[string]string) string {
	if len(renames) == 0 {
		return text
	}
	var b strings.Builder
	last := 0
	for _, tok := range Tokenize(text) {
		if tok.Kind != TokenIdent {
			continue
		}
		repl, ok := renames[tok.Text]
		if !ok {
			continue
		}
		b.WriteString(text[last:tok.Pos])
		b.WriteString(repl)
		last = tok.Pos + len(tok.Text)
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}
