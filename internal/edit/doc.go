// Package edit applies ordered edit plans to parsed templates.
//
// Each step names one template operation. A step may be guarded by a CEL condition and its
// value may be computed with a Handlebars template; both see the same view of the template:
// title, is_arg, is_string, text, params (trimmed name -> rebuilt value), names and index.
//
// Example plan (YAML):
//
//	mode: lenient
//	steps:
//	  - op: rename
//	    name: birth_date
//	    new_name: born
//	  - op: add_after
//	    anchor: born
//	    name: age
//	    value: "{{{params.born}}}"
//	    render: true
//	    when: '"born" in template.params'
//	  - op: set_is_arg
//	    is_arg: false
//
// Applying it:
//
//	editor := edit.NewEditor(logger)
//	result, err := editor.Apply(ctx, tmpl, plan)
//	fmt.Println(result.Rebuilt)
//
// In strict mode (the default) the first failing step aborts the plan and no changes are
// returned. In lenient mode failing steps are reported in Result.Steps and skipped.
package edit
