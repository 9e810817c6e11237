package core

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

/*
Read-only guard for generated SQL. The statement is tokenized so that string
literals, quoted identifiers, and comments never trip the keyword checks
(a column named created_at must not match CREATE). A statement passes when:

	1. it lexes cleanly and is non-empty
	2. the first keyword is SELECT or WITH
	3. it is a single statement (a semicolon may only trail)
	4. no write/DDL keyword appears as a bare token
*/

var sqlLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "whitespace", Pattern: `\s+`},
	{Name: "LineComment", Pattern: `--[^\n]*`},
	{Name: "BlockComment", Pattern: `/\*(?:[^*]|\*+[^*/])*\*+/`},
	{Name: "String", Pattern: `'(?:''|[^'])*'`},
	{Name: "QuotedIdent", Pattern: `"(?:""|[^"])*"`},
	{Name: "BacktickIdent", Pattern: "`[^`]*`"},
	{Name: "Number", Pattern: `[0-9]+(?:\.[0-9]+)?`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_$]*`},
	{Name: "Semicolon", Pattern: `;`},
	{Name: "Punct", Pattern: `.`},
})

var (
	identType = sqlLexer.Symbols()["Ident"]
	semiType  = sqlLexer.Symbols()["Semicolon"]
	skipTypes = map[lexer.TokenType]bool{
		sqlLexer.Symbols()["whitespace"]:   true,
		sqlLexer.Symbols()["LineComment"]:  true,
		sqlLexer.Symbols()["BlockComment"]: true,
	}
)

// bannedKeywords are statement keywords that modify data or schema, or escape
// a plain SELECT. REPLACE and SET are deliberately absent: both appear in
// legitimate SELECTs (the REPLACE() function, unquoted set columns), and the
// statements they could start are already blocked by the SELECT/WITH rule.
var bannedKeywords = map[string]bool{
	"DROP":     true,
	"DELETE":   true,
	"INSERT":   true,
	"UPDATE":   true,
	"ALTER":    true,
	"CREATE":   true,
	"TRUNCATE": true,
	"GRANT":    true,
	"REVOKE":   true,
	"MERGE":    true,
	"ATTACH":   true,
	"DETACH":   true,
	"PRAGMA":   true,
	"VACUUM":   true,
	"EXEC":     true,
	"EXECUTE":  true,
	"CALL":     true,
	"INTO":     true,
}

// ValidateQuery checks that a statement is a single read-only SELECT (or
// WITH ... SELECT) before it is allowed anywhere near the datasource.
func ValidateQuery(query string) error {
	lex, err := sqlLexer.Lex("", strings.NewReader(query))
	if err != nil {
		return fmt.Errorf("could not tokenize query: %w", err)
	}
	all, err := lexer.ConsumeAll(lex)
	if err != nil {
		return fmt.Errorf("could not tokenize query: %w", err)
	}

	tokens := make([]lexer.Token, 0, len(all))
	for _, tok := range all {
		if tok.EOF() || skipTypes[tok.Type] {
			continue
		}
		tokens = append(tokens, tok)
	}

	if len(tokens) == 0 {
		return fmt.Errorf("empty query")
	}

	first := tokens[0]
	if first.Type != identType {
		return fmt.Errorf("only SELECT queries are allowed")
	}
	if kw := strings.ToUpper(first.Value); kw != "SELECT" && kw != "WITH" {
		return fmt.Errorf("only SELECT queries are allowed, got %s", kw)
	}

	for i, tok := range tokens {
		switch tok.Type {
		case semiType:
			for _, rest := range tokens[i+1:] {
				if rest.Type != semiType {
					return fmt.Errorf("multiple SQL statements are not allowed")
				}
			}
		case identType:
			if kw := strings.ToUpper(tok.Value); bannedKeywords[kw] {
				return fmt.Errorf("query contains forbidden keyword %s", kw)
			}
		}
	}

	return nil
}
