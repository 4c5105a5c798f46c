package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const infobox = `{"title":"Infobox","params":[
	{"name":"1","index":true,"value":"x"},
	{"name":" name ","value":[{"text":"see "},{"title":"lang","params":[{"name":"1","index":true,"value":"de"}]}]}
]}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRebuild(t *testing.T) {
	path := writeFile(t, "t.json", infobox)

	out, _, err := run(t, "", "rebuild", "-t", path)
	require.NoError(t, err)
	assert.Equal(t, "{{Infobox|x| name =see {{lang|de}}}}\n", out)
}

func TestRebuildFromStdinAsJSON(t *testing.T) {
	out, _, err := run(t, `{"text":"plain words"}`, "rebuild", "-t", "-", "--json")
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "plain words", got["rebuilt"])
}

func TestRebuildErrors(t *testing.T) {
	_, _, err := run(t, "", "rebuild")
	require.Error(t, err)

	_, _, err = run(t, "{", "rebuild", "-t", "-")
	require.Error(t, err)

	deep := `{"title":"a","params":[{"name":"1","index":true,"value":[{"title":"b"}]}]}`
	_, _, err = run(t, deep, "rebuild", "-t", "-", "--max-depth", "1")
	require.Error(t, err)
}

func TestParams(t *testing.T) {
	out, _, err := run(t, infobox, "params", "-t", "-", "--json")
	require.NoError(t, err)

	var got []paramView
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []paramView{
		{Name: "1", Index: true, Value: "x"},
		{Name: " name ", Value: "see {{lang|de}}"},
	}, got)

	out, _, err = run(t, infobox, "params", "-t", "-")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "index")
	assert.Contains(t, lines[1], "see {{lang|de}}")
}

func TestParamsRejectsStringTemplate(t *testing.T) {
	_, _, err := run(t, `{"text":"plain"}`, "params", "-t", "-")
	require.Error(t, err)
}

func TestApply(t *testing.T) {
	plan := writeFile(t, "plan.yaml", `
steps:
  - op: rename
    name: name
    new_name: label
  - op: add_after
    anchor: "1"
    name: width
    value: 100px
  - op: set_title
    title: Box
    when: template.title == "Infobox"
`)

	out, _, err := run(t, infobox, "apply", "-t", "-", "-p", plan)
	require.NoError(t, err)
	assert.Equal(t, "{{Box|x|width=100px|label=see {{lang|de}}}}\n", out)
}

func TestApplyJSONAndLenient(t *testing.T) {
	plan := writeFile(t, "plan.json", `{"steps":[
		{"op":"str_replace","search":"see","replace":"voir"},
		{"op":"set","name":"width","value":"voir"}
	]}`)

	_, _, err := run(t, infobox, "apply", "-t", "-", "-p", plan)
	require.Error(t, err)

	out, stderr, err := run(t, infobox, "apply", "-t", "-", "-p", plan, "--mode", "lenient")
	require.NoError(t, err)
	assert.Equal(t, "{{Infobox|x| name =see {{lang|de}}|width=voir}}\n", out)
	assert.Contains(t, stderr, "step 0 (str_replace) failed")

	out, _, err = run(t, infobox, "apply", "-t", "-", "-p", plan, "--mode", "lenient", "--json")
	require.NoError(t, err)

	var got struct {
		Rebuilt  string          `json:"rebuilt"`
		Failed   int             `json:"failed"`
		Template json.RawMessage `json:"template"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 1, got.Failed)
	assert.Contains(t, got.Rebuilt, "|width=voir")
	assert.Contains(t, string(got.Template), `"Infobox"`)
}

func TestApplyFlagErrors(t *testing.T) {
	plan := writeFile(t, "plan.yaml", "steps:\n  - op: set_title\n    title: X\n    when: \"true\"\n")

	_, _, err := run(t, infobox, "apply", "-t", "-")
	require.Error(t, err)

	_, _, err = run(t, infobox, "apply", "-t", "-", "-p", plan, "--mode", "eager")
	require.Error(t, err)

	_, _, err = run(t, infobox, "apply", "-t", "-", "-p", plan, "--no-cel")
	require.Error(t, err)
}
