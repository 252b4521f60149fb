package visualize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobhei/docuchat/artifact"
)

func TestParseKind(t *testing.T) {
	assert.Equal(t, KindLine, ParseKind("line"))
	assert.Equal(t, KindPie, ParseKind(" PIE "))
	assert.Equal(t, KindBar, ParseKind("bar"))
	assert.Equal(t, KindBar, ParseKind("histogram"))
	assert.Equal(t, KindBar, ParseKind(""))
}

func TestRenderBar(t *testing.T) {
	store := artifact.NewInMemoryStore()
	r := NewRenderer(store)

	ref, err := r.Render("u1", Dataset{
		Labels: []string{"2022", "2023"},
		Values: []float64{10, 30},
	}, KindBar)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(ref, "memory://u1/chart_"))

	name := strings.TrimPrefix(ref, "memory://u1/")
	data, err := store.Get("u1", name)
	require.NoError(t, err)

	svg := string(data)
	assert.Contains(t, svg, "<svg")
	assert.Equal(t, 2, strings.Count(svg, `<rect x=`))
	assert.Contains(t, svg, "2023")
}

func TestRenderLineAndPie(t *testing.T) {
	r := NewRenderer(artifact.NewInMemoryStore())
	ds := Dataset{Labels: []string{"a", "b", "c"}, Values: []float64{1, 2, 3}}

	_, err := r.Render("u1", ds, KindLine)
	assert.NoError(t, err)
	_, err = r.Render("u1", ds, KindPie)
	assert.NoError(t, err)
}

func TestRenderRejectsBadDatasets(t *testing.T) {
	r := NewRenderer(artifact.NewInMemoryStore())

	_, err := r.Render("u1", Dataset{}, KindBar)
	assert.ErrorContains(t, err, "empty")

	_, err = r.Render("u1", Dataset{Labels: []string{"a"}, Values: []float64{1, 2}}, KindBar)
	assert.ErrorContains(t, err, "same length")
}

func TestEscapeLabels(t *testing.T) {
	store := artifact.NewInMemoryStore()
	r := NewRenderer(store)

	ref, err := r.Render("u1", Dataset{Labels: []string{"<b>"}, Values: []float64{1}}, KindBar)
	require.NoError(t, err)
	data, _ := store.Get("u1", strings.TrimPrefix(ref, "memory://u1/"))
	assert.Contains(t, string(data), "&lt;b&gt;")
}
