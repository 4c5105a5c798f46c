// Package markup models a parsed wikitext template invocation and rebuilds it into markup.
//
// A Template holds either an ordered set of parameters or a literal string. Parameters keep
// an explicit positional flag so rebuilding does not depend on numeric key contiguity.
//
// Example usage:
//
//	tmpl := markup.New("Infobox")
//	tmpl.AddParam("1", markup.Text("x"), true)
//	tmpl.AddParam("name", markup.Text("y"), false)
//	fmt.Println(tmpl.Rebuild()) // {{Infobox|x|name=y}}
//
// Parameter values may embed nested templates:
//
//	inner := markup.New("lang")
//	tmpl.SetParam("native", markup.Nested(markup.NewText("see "), inner), false)
//
// Operations that need a parameter mapping fail with ErrUnsupportedOperation when the
// template holds a literal string, and string operations fail the other way round.
package markup
