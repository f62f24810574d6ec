package sqlschema

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// exprLexer tokenises catalog default expressions. It is deliberately loose:
// it only has to recognise enough structure to tell a function call from a
// literal, and never has to accept a full SQL grammar.
var exprLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	// String literals, including E'' and N'' prefixes. Quotes are escaped by doubling.
	{Name: "String", Pattern: `[eEnN]?'(?:[^']|'')*'`},
	{Name: "QuotedIdent", Pattern: `"(?:[^"]|"")*"`},
	{Name: "Number", Pattern: `(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_$]*`},
	{Name: "Cast", Pattern: `::`},
	{Name: "Punct", Pattern: `[(),.\[\]{}]`},
	{Name: "Op", Pattern: `[-+*/%<>=!|&^~#@?:;]+`},
	{Name: "Char", Pattern: `\S`},
})

var (
	tokWhitespace  = exprLexer.Symbols()["Whitespace"]
	tokIdent       = exprLexer.Symbols()["Ident"]
	tokQuotedIdent = exprLexer.Symbols()["QuotedIdent"]
	tokPunct       = exprLexer.Symbols()["Punct"]
)

// lexExpr tokenises s, dropping whitespace and the trailing EOF token.
func lexExpr(s string) ([]lexer.Token, error) {
	lex, err := exprLexer.LexString("", s)
	if err != nil {
		return nil, err
	}

	all, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, err
	}

	tokens := make([]lexer.Token, 0, len(all))
	for _, tok := range all {
		if tok.EOF() || tok.Type == tokWhitespace {
			continue
		}

		tokens = append(tokens, tok)
	}

	return tokens, nil
}

func isIdentToken(tok lexer.Token) bool {
	return tok.Type == tokIdent || tok.Type == tokQuotedIdent
}

func isPunct(tok lexer.Token, value string) bool {
	return tok.Type == tokPunct && tok.Value == value
}

// IsFunctionCall reports whether expr starts with a (possibly schema
// qualified) identifier immediately followed by an opening parenthesis,
// e.g. "gen_random_uuid()" or "public.next_id('x')".
func IsFunctionCall(expr string) bool {
	tokens, err := lexExpr(expr)
	if err != nil || len(tokens) < 2 {
		return false
	}

	if !isIdentToken(tokens[0]) {
		return false
	}

	i := 1
	for i+1 < len(tokens) && isPunct(tokens[i], ".") && isIdentToken(tokens[i+1]) {
		i += 2
	}

	return i < len(tokens) && isPunct(tokens[i], "(")
}

// UnwrapParens strips balanced parentheses that enclose the whole of expr,
// repeatedly: "((now()))" becomes "now()". Parentheses inside string
// literals are ignored.
func UnwrapParens(expr string) string {
	for {
		tokens, err := lexExpr(expr)
		if err != nil || len(tokens) < 2 {
			return expr
		}

		first, last := tokens[0], tokens[len(tokens)-1]
		if !isPunct(first, "(") || !isPunct(last, ")") {
			return expr
		}

		depth := 0
		for i, tok := range tokens {
			switch {
			case isPunct(tok, "("):
				depth++
			case isPunct(tok, ")"):
				depth--
			}

			if depth == 0 && i < len(tokens)-1 {
				// The opening parenthesis closes before the end: "(a) + (b)".
				return expr
			}
		}

		expr = strings.TrimSpace(expr[first.Pos.Offset+1 : last.Pos.Offset])
	}
}
