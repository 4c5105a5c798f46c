// Package template renders Handlebars value templates for edit steps.
//
// Values render against the same template view conditions see. Double-stash output is
// HTML-escaped by raymond, so markup should go through triple-stash ({{{params.name}}})
// or one of the markup helpers.
//
//	engine := template.NewEngine()
//	value, err := engine.Render(`{{wikilink params.city ""}}`, view)
//
// Helpers: uppercase, lowercase, trim, contains, join, default, eq, ne, gt, lt, len,
// and the unescaped markup helpers raw, wikilink, arg and nowiki.
package template
