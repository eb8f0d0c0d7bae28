package attr

import (
	"errors"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/cmmoran/buildergen/internal/model"
	"github.com/cmmoran/buildergen/internal/options"
)

// Strings may be quoted with either " or ' so attributes can live inside a
// struct tag.
var groupLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(\\.|[^"\\])*"|'(\\.|[^'\\])*'`},
	{Name: "Ident", Pattern: `[\p{L}_][\p{L}\p{N}_]*`},
	{Name: "Punct", Pattern: `[=(),.]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var groupParser = participle.MustBuild[groupNode](
	participle.Lexer(groupLexer),
	participle.Map(unquote, "String"),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

type groupNode struct {
	Items []*itemNode `( @@ ( "," @@ )* )?`
}

type itemNode struct {
	Pos   lexer.Position
	Path  []string   `@Ident ( "." @Ident )*`
	Value *valueNode `( "=" @@`
	Group *listNode  `| @@ )?`
}

type listNode struct {
	Pos   lexer.Position
	Items []*itemNode `"(" ( @@ ( "," @@ )* )? ")"`
}

type valueNode struct {
	Pos  lexer.Position
	Str  *string   `  @String`
	Bool *boolNode `| @("true" | "false")`
}

type boolNode bool

func (b *boolNode) Capture(values []string) error {
	*b = values[0] == "true"
	return nil
}

// ParseGroup parses one attribute group:
//
//	list := item {"," item}
//	item := path ["=" value | "(" list ")"]
//	path := ident {"." ident}
//
// Values are quoted strings or the identifiers true and false.
func ParseGroup(text string, pos model.Pos) ([]options.Item, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	g, err := groupParser.ParseString("", text)
	if err != nil {
		var perr participle.Error
		if errors.As(err, &perr) {
			return nil, syntax(pos, perr.Position().Offset, perr.Message())
		}
		return nil, syntax(pos, 0, err.Error())
	}
	return items(g.Items, pos), nil
}

func at(base model.Pos, off int) model.Pos {
	if base.Column > 0 {
		base.Column += off
	}
	return base
}

func syntax(base model.Pos, off int, reason string) error {
	return &ParseError{Pos: at(base, off), Err: ErrSyntax, Reason: reason}
}

func items(nodes []*itemNode, base model.Pos) []options.Item {
	out := make([]options.Item, 0, len(nodes))
	for _, n := range nodes {
		it := options.Item{Path: n.Path, Pos: at(base, n.Pos.Offset)}
		switch {
		case n.Value != nil && n.Value.Str != nil:
			it.Value = options.String(*n.Value.Str, at(base, n.Value.Pos.Offset))
		case n.Value != nil && n.Value.Bool != nil:
			it.Value = options.Value{Kind: options.KindBool, Bool: bool(*n.Value.Bool), Pos: at(base, n.Value.Pos.Offset)}
		case n.Group != nil:
			it.Value = options.Value{Kind: options.KindGroup, Items: items(n.Group.Items, base), Pos: at(base, n.Group.Pos.Offset)}
		default:
			it.Value = options.Flag(it.Pos)
		}
		out = append(out, it)
	}
	return out
}

// unquote strips either quote style and resolves the \n, \t, \\, \" and \'
// escapes.
func unquote(t lexer.Token) (lexer.Token, error) {
	var sb strings.Builder
	s := t.Value[1 : len(t.Value)-1]
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			sb.WriteByte(s[i])
			continue
		}
		i++
		switch e := s[i]; e {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case '\\', '"', '\'':
			sb.WriteByte(e)
		default:
			return t, participle.Errorf(t.Pos, "unknown escape \\%c", e)
		}
	}
	t.Value = sb.String()
	return t, nil
}
