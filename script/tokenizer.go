package script

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type TokenType int

const (
	TokenWord TokenType = iota
	TokenNumber
	TokenString
	TokenLParen
	TokenRParen
	TokenComma
	TokenSemicolon
	TokenEquals
	TokenMinus
	// TokenBroken marks a quote whose string literal never closed before the
	// next statement; the text after it was read again as prose.
	TokenBroken
	TokenEnd
)

func (t TokenType) String() string {
	switch t {
	case TokenWord:
		return "word"
	case TokenNumber:
		return "number"
	case TokenString:
		return "string"
	case TokenLParen:
		return "("
	case TokenRParen:
		return ")"
	case TokenComma:
		return ","
	case TokenSemicolon:
		return ";"
	case TokenEquals:
		return "="
	case TokenMinus:
		return "-"
	case TokenBroken:
		return "broken"
	case TokenEnd:
		return "end"
	}
	return "unknown"
}

type Token struct {
	Type  TokenType
	Value string
	// Offset is the byte position of the token in the source text.
	Offset int
}

type LexerState int

const (
	LexerStart LexerState = iota
	LexerWord
	LexerNumber
	LexerString
	LexerStringQuote
	LexerDash
	LexerComment
)

func isWordStart(char rune) bool {
	return char == '_' || unicode.IsLetter(char)
}

func isWordPart(char rune) bool {
	return isWordStart(char) || unicode.IsDigit(char)
}

// startsStatement reports whether text begins, after blank space, with
// INSERT INTO.
func startsStatement(text string) bool {
	rest := strings.TrimLeft(text, " \t\r\n")
	if len(rest) < len("INSERT") || !strings.EqualFold(rest[:len("INSERT")], "INSERT") {
		return false
	}
	rest = rest[len("INSERT"):]
	into := strings.TrimLeft(rest, " \t\r\n")
	if len(into) == len(rest) || len(into) < len("INTO") {
		return false
	}
	return strings.EqualFold(into[:len("INTO")], "INTO")
}

// Tokenize splits generated SQL text into tokens. It never fails: characters
// the grammar has no use for (quotes around identifiers, dots, prose
// punctuation) are dropped.
//
// Single quotes only open a string literal inside parentheses, and the depth
// goes back to zero at every ; and INSERT, so a parenthesis left open by prose
// or a broken tuple does not leak into the next statement. A literal still
// open at a line that starts a new INSERT INTO, or at the end of the text, is
// abandoned: a TokenBroken is emitted at its quote and the rest of that line
// is read again with quotes ignored.
func Tokenize(text string) []Token {
	var tokens []Token
	var literal strings.Builder

	state := LexerStart
	initialPos := 0
	depth := 0
	// Quotes before quietUntil are prose.
	quietUntil := 0
	resume := -1

	emit := func(tokenType TokenType, value string, offset int) {
		tokens = append(tokens, Token{Type: tokenType, Value: value, Offset: offset})
	}

	abandon := func(until int) {
		emit(TokenBroken, "'", initialPos)
		quietUntil = until
		resume = initialPos + 1
		state = LexerStart
	}

	var step func(pos int, char rune)
	step = func(pos int, char rune) {
		switch state {
		case LexerStart:
			switch {
			case char == '(':
				depth++
				emit(TokenLParen, "(", pos)
			case char == ')':
				if depth > 0 {
					depth--
				}
				emit(TokenRParen, ")", pos)
			case char == ',':
				emit(TokenComma, ",", pos)
			case char == ';':
				depth = 0
				emit(TokenSemicolon, ";", pos)
			case char == '=':
				emit(TokenEquals, "=", pos)
			case char == '\'' && depth > 0 && pos >= quietUntil:
				literal.Reset()
				initialPos = pos
				state = LexerString
			case char == '-':
				initialPos = pos
				state = LexerDash
			case unicode.IsDigit(char):
				initialPos = pos
				state = LexerNumber
			case isWordStart(char):
				initialPos = pos
				state = LexerWord
			}
		case LexerWord:
			if !isWordPart(char) {
				word := text[initialPos:pos]
				if strings.EqualFold(word, "INSERT") {
					depth = 0
				}
				emit(TokenWord, word, initialPos)
				state = LexerStart
				step(pos, char)
			}
		case LexerNumber:
			switch {
			case unicode.IsDigit(char):
			case isWordStart(char):
				state = LexerWord
			default:
				emit(TokenNumber, text[initialPos:pos], initialPos)
				state = LexerStart
				step(pos, char)
			}
		case LexerString:
			switch {
			case char == '\'':
				state = LexerStringQuote
			case char == '\n' && startsStatement(text[pos+1:]):
				abandon(pos)
			default:
				literal.WriteRune(char)
			}
		case LexerStringQuote:
			// A doubled quote is an escaped quote inside the literal.
			if char == '\'' {
				literal.WriteRune('\'')
				state = LexerString
			} else {
				emit(TokenString, literal.String(), initialPos)
				state = LexerStart
				step(pos, char)
			}
		case LexerDash:
			switch {
			case char == '-':
				state = LexerComment
			case unicode.IsDigit(char):
				// The sign stays part of the number.
				state = LexerNumber
			default:
				emit(TokenMinus, "-", initialPos)
				state = LexerStart
				step(pos, char)
			}
		case LexerComment:
			if char == '\n' {
				state = LexerStart
			}
		}
	}

	end := len(text)
	for pos := 0; ; {
		if pos >= end {
			if state != LexerString {
				break
			}
			abandon(end)
		} else {
			char, size := utf8.DecodeRuneInString(text[pos:])
			step(pos, char)
			if resume < 0 {
				pos += size
				continue
			}
		}
		pos, resume = resume, -1
	}

	switch state {
	case LexerWord:
		emit(TokenWord, text[initialPos:end], initialPos)
	case LexerNumber:
		emit(TokenNumber, text[initialPos:end], initialPos)
	case LexerStringQuote:
		emit(TokenString, literal.String(), initialPos)
	case LexerDash:
		emit(TokenMinus, "-", initialPos)
	}

	emit(TokenEnd, "$", end)
	return tokens
}
