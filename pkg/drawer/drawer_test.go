package drawer

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wehubfusion/textprep/pkg/config"
)

func pipelineConfig(t *testing.T, types ...string) *config.PipelineConfig {
	t.Helper()
	steps := make([]config.StepConfig, len(types))
	for i, typ := range types {
		steps[i] = config.StepConfig{Name: config.SectionSteps, Type: typ}
	}
	cfg, err := config.Validate(&config.Raw{
		Loader: &config.LoaderConfig{Type: config.LoaderList},
		Steps:  steps,
	}, "info")
	require.NoError(t, err)
	return cfg
}

func TestGraph(t *testing.T) {
	cfg := pipelineConfig(t, config.StepLowercase, config.StepRemoveHTML, config.StepRemoveStopwords, config.StepLemmatizer)

	g, err := Graph(cfg)
	require.NoError(t, err)

	order, err := g.Order()
	require.NoError(t, err)
	assert.Equal(t, 6, order)

	loader := LoaderVertex(config.LoaderList)
	tokenizer := TokenizerVertex(config.TokenizerRegex)
	lower := StepVertex(0, config.StepLowercase)
	html := StepVertex(1, config.StepRemoveHTML)
	stop := StepVertex(2, config.StepRemoveStopwords)
	lemma := StepVertex(3, config.StepLemmatizer)

	_, err = g.Edge(loader, lower)
	assert.NoError(t, err)
	_, err = g.Edge(lower, html)
	assert.NoError(t, err)

	edge, err := g.Edge(tokenizer, stop)
	require.NoError(t, err)
	assert.Equal(t, "dashed", edge.Properties.Attributes["style"])
	_, err = g.Edge(tokenizer, lemma)
	assert.NoError(t, err)
	_, err = g.Edge(tokenizer, html)
	assert.Error(t, err)

	req, err := g.Edge(lower, stop)
	require.NoError(t, err)
	assert.Equal(t, "requires", req.Properties.Attributes["label"])
	assert.Equal(t, "dotted", req.Properties.Attributes["style"])
}

func TestGraphAdjacentRequirementLabelsFlowEdge(t *testing.T) {
	g, err := Graph(pipelineConfig(t, config.StepLowercase, config.StepExpandContractions))
	require.NoError(t, err)

	edge, err := g.Edge(StepVertex(0, config.StepLowercase), StepVertex(1, config.StepExpandContractions))
	require.NoError(t, err)
	assert.Equal(t, "requires", edge.Properties.Attributes["label"])
}

func TestStepColour(t *testing.T) {
	first, err := stepColour(0, 3)
	require.NoError(t, err)
	assert.True(t, strings.EqualFold("#0000f0", first), first)

	last, err := stepColour(2, 3)
	require.NoError(t, err)
	assert.True(t, strings.EqualFold("#f00000", last), last)

	only, err := stepColour(0, 1)
	require.NoError(t, err)
	assert.True(t, strings.EqualFold("#0000f0", only), only)
}

func TestDOT(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, DOT(pipelineConfig(t, config.StepLowercase, config.StepRemoveStopwords), &buf))

	out := buf.String()
	assert.Contains(t, out, "digraph")
	assert.Contains(t, out, `rankdir="LR"`)
	assert.Contains(t, out, `"01 lowercase" -> "02 remove_stopwords"`)
	assert.Contains(t, out, `"data_loader/list" -> "01 lowercase"`)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.dot")
	require.NoError(t, WriteFile(pipelineConfig(t, config.StepLowercase), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "01 lowercase")

	assert.Error(t, WriteFile(pipelineConfig(t, config.StepLowercase), filepath.Join(t.TempDir(), "missing", "x.dot")))
}
