package guide

import "github.com/alecthomas/participle/v2/lexer"

// File is a parsed route-guide file.
type File struct {
	Nets []*NetGuide `parser:"@@*"`
}

// NetGuide is the guide block of one net.
type NetGuide struct {
	Pos   lexer.Position
	Name  string  `parser:"@(Ident | Int)"`
	Rects []*Rect `parser:"LParen @@* RParen"`
}

// Rect is one guide rectangle on a named layer.
type Rect struct {
	Pos   lexer.Position
	XL    int    `parser:"@Int"`
	YL    int    `parser:"@Int"`
	XH    int    `parser:"@Int"`
	YH    int    `parser:"@Int"`
	Layer string `parser:"@Ident"`
}
