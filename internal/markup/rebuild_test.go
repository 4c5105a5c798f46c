package markup_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/dago-node-template/internal/markup"
)

func TestRebuildStringIsVerbatim(t *testing.T) {
	for _, text := range []string{"", "plain", "{{not|parsed}}", "a | b = c\n"} {
		assert.Equal(t, text, markup.NewText(text).Rebuild())
	}
}

func TestRebuildIndexAndNamed(t *testing.T) {
	tmpl := markup.New("T")
	_, err := tmpl.AddParam("1", markup.Text("x"), true)
	require.NoError(t, err)
	_, err = tmpl.AddParam("name", markup.Text("y"), false)
	require.NoError(t, err)

	assert.Equal(t, "{{T|x|name=y}}", tmpl.Rebuild())

	tmpl.SetIsArg(true)
	assert.True(t, tmpl.IsArg())
	assert.Equal(t, "{{{T|x|name=y}}}", tmpl.Rebuild())
}

func TestRebuildFollowsMappingOrder(t *testing.T) {
	tmpl := markup.New("T")
	_, err := tmpl.AddParam("name", markup.Text("y"), false)
	require.NoError(t, err)
	_, err = tmpl.AddParam("5", markup.Text("x"), true)
	require.NoError(t, err)

	assert.Equal(t, "{{T|name=y|x}}", tmpl.Rebuild())
}

func TestRebuildNested(t *testing.T) {
	a := markup.New("A")
	_, err := a.AddParam("1", markup.Text("v"), true)
	require.NoError(t, err)
	b := markup.NewText(" tail")

	tmpl := markup.New("T")
	_, err = tmpl.AddParam("p", markup.Nested(a, b), false)
	require.NoError(t, err)
	_, err = tmpl.AddParam("1", markup.Nested(b, a), true)
	require.NoError(t, err)

	assert.Equal(t, "{{T|p={{A|v}} tail| tail{{A|v}}}}", tmpl.Rebuild())

	value, err := tmpl.RebuildParam("p")
	require.NoError(t, err)
	assert.Equal(t, a.Rebuild()+b.Rebuild(), value)

	value, err = tmpl.RebuildParam("1")
	require.NoError(t, err)
	assert.Equal(t, " tail{{A|v}}", value)
}

func TestRebuildNestedArgument(t *testing.T) {
	arg := markup.New("width")
	_, err := arg.AddParam("1", markup.Text("100px"), true)
	require.NoError(t, err)
	arg.SetIsArg(true)

	tmpl := markup.New("Image")
	_, err = tmpl.AddParam("size", markup.Nested(arg), false)
	require.NoError(t, err)
	_, err = tmpl.AddParam("empty", markup.Nested(), false)
	require.NoError(t, err)

	assert.Equal(t, "{{Image|size={{{width|100px}}}|empty=}}", tmpl.Rebuild())
}

func TestRebuildParamLiteral(t *testing.T) {
	tmpl := markup.New("T")
	_, err := tmpl.AddParam("k", markup.Text(" spaced "), false)
	require.NoError(t, err)

	value, err := tmpl.RebuildParam("k")
	require.NoError(t, err)
	assert.Equal(t, " spaced ", value)
}
