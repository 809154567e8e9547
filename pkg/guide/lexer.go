package guide

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// GuideLexer tokenizes route-guide files: net names, parenthesized blocks
// of "xl yl xh yh layer" records, and '#' comments.
var GuideLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `[\s]+`},
	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},
	{Name: "Int", Pattern: `-?[0-9]+\b`},
	// Net and layer names may carry bus bits and hierarchy separators.
	{Name: "Ident", Pattern: `[^\s()#]+`},
})
