package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func tokenTypes(tokens []Token) []TokenType {
	var types []TokenType
	for _, token := range tokens {
		types = append(types, token.Type)
	}
	return types
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize(`INSERT INTO entidades VALUES (20, NULL, 'Don''t stop', 'x', 'c1');`)

	assert.Equal(t, []TokenType{
		TokenWord, TokenWord, TokenWord, TokenWord,
		TokenLParen, TokenNumber, TokenComma, TokenWord, TokenComma, TokenString, TokenComma, TokenString, TokenComma, TokenString, TokenRParen,
		TokenSemicolon, TokenEnd,
	}, tokenTypes(tokens))
	assert.Equal(t, "Don't stop", tokens[9].Value)
	assert.Equal(t, "c1", tokens[13].Value)
	assert.Equal(t, 0, tokens[0].Offset)
	assert.Equal(t, 7, tokens[1].Offset)
}

func TestTokenizeProseApostrophes(t *testing.T) {
	tokens := Tokenize("Here's the script you asked for:\n(2, 'it''s')")

	var strings []string
	for _, token := range tokens {
		if token.Type == TokenString {
			strings = append(strings, token.Value)
		}
	}
	assert.Equal(t, []string{"it's"}, strings)
}

func TestTokenizeComments(t *testing.T) {
	tokens := Tokenize("-- relaciones (comp_1 -> 'x')\n(1, '-- kept')")

	assert.Equal(t, []TokenType{TokenLParen, TokenNumber, TokenComma, TokenString, TokenRParen, TokenEnd}, tokenTypes(tokens))
	assert.Equal(t, "-- kept", tokens[3].Value)
}

func TestTokenizeEdges(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		types []TokenType
	}{
		{"empty", "", []TokenType{TokenEnd}},
		{"trailing word", "VALUES", []TokenType{TokenWord, TokenEnd}},
		{"trailing number", "(13", []TokenType{TokenLParen, TokenNumber, TokenEnd}},
		{"string at end", "('done'", []TokenType{TokenLParen, TokenString, TokenEnd}},
		{"unterminated string", "('never closed, 1)", []TokenType{TokenLParen, TokenBroken, TokenWord, TokenWord, TokenComma, TokenNumber, TokenRParen, TokenEnd}},
		{"negative number", "(-2", []TokenType{TokenLParen, TokenNumber, TokenEnd}},
		{"spaced minus", "(- 2", []TokenType{TokenLParen, TokenMinus, TokenNumber, TokenEnd}},
		{"trailing minus", "(-", []TokenType{TokenLParen, TokenMinus, TokenEnd}},
		{"semicolon closes depth", "(a; 'x'", []TokenType{TokenLParen, TokenWord, TokenSemicolon, TokenWord, TokenEnd}},
		{"insert closes depth", "(see INSERT 'x'", []TokenType{TokenLParen, TokenWord, TokenWord, TokenWord, TokenEnd}},
		{"digits then letters", "(3rd)", []TokenType{TokenLParen, TokenWord, TokenRParen, TokenEnd}},
		{"unbalanced close", ") 'x' (", []TokenType{TokenRParen, TokenWord, TokenLParen, TokenEnd}},
		{"accented word", "relación", []TokenType{TokenWord, TokenEnd}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.types, tokenTypes(Tokenize(tt.text)))
		})
	}
}

func TestTokenizeNegativeNumber(t *testing.T) {
	tokens := Tokenize("(-2, 13)")

	assert.Equal(t, "-2", tokens[1].Value)
	assert.Equal(t, 1, tokens[1].Offset)
	assert.Equal(t, "13", tokens[3].Value)
}

func TestTokenizeApostropheInAside(t *testing.T) {
	text := "Here is the script (it's the final version):\nINSERT INTO entidades VALUES (20, NULL, 'Comp', '', 'comp_1');"
	tokens := Tokenize(text)

	var broken []Token
	var strings []string
	for _, token := range tokens {
		switch token.Type {
		case TokenBroken:
			broken = append(broken, token)
		case TokenString:
			strings = append(strings, token.Value)
		}
	}

	assert.Len(t, broken, 1)
	assert.Equal(t, 22, broken[0].Offset)
	assert.Equal(t, []string{"Comp", "", "comp_1"}, strings)
}

func TestTokenizeLiteralStopsAtNextStatement(t *testing.T) {
	text := "INSERT INTO entidades VALUES (2, 'Roto\n  insert into entidades VALUES (2, 'Bien')"
	tokens := Tokenize(text)

	var strings []string
	for _, token := range tokens {
		if token.Type == TokenString {
			strings = append(strings, token.Value)
		}
	}
	assert.Equal(t, []string{"Bien"}, strings)
	assert.Contains(t, tokenTypes(tokens), TokenBroken)
}

func TestStartsStatement(t *testing.T) {
	assert.True(t, startsStatement("INSERT INTO x"))
	assert.True(t, startsStatement("\n  insert\tinto x"))
	assert.False(t, startsStatement("INSERTINTO x"))
	assert.False(t, startsStatement("INSERT"))
	assert.False(t, startsStatement("Inserta el texto"))
	assert.False(t, startsStatement(""))
}
