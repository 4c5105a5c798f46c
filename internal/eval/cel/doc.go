// Package cel evaluates edit step conditions written in CEL (Common Expression Language).
//
// A condition sees one map variable, template, describing the template being edited:
// title, is_arg, is_string, text, params (name to rebuilt value), names and index.
// The strings extension is loaded, so lowerAscii, split, replace and friends are available.
//
//	evaluator := cel.NewEvaluator()
//	ok, err := evaluator.Match(ctx, `"name" in template.params`, view)
package cel
