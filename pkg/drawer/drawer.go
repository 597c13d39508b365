// Package drawer renders a validated pipeline as a Graphviz DOT graph.
//
// Steps are drawn in execution order, coloured from blue (first) to red
// (last). Dashed edges show which steps read the shared tokenizer and
// dotted edges show ordering prerequisites.
package drawer

import (
	"fmt"
	"io"
	"os"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1" //nolint

	"github.com/wehubfusion/textprep/pkg/config"
)

const maxRGB = 240

// StepVertex returns the vertex name of the step at index.
func StepVertex(index int, stepType string) string {
	return fmt.Sprintf("%02d %s", index+1, stepType)
}

// LoaderVertex returns the vertex name of the loader.
func LoaderVertex(loaderType string) string {
	return config.SectionLoader + "/" + loaderType
}

// TokenizerVertex returns the vertex name of the tokenizer.
func TokenizerVertex(tokenizerType string) string {
	return config.SectionTokenizer + "/" + tokenizerType
}

// Graph builds the directed graph of cfg.
func Graph(cfg *config.PipelineConfig) (graph.Graph[string, string], error) {
	g := graph.New(graph.StringHash, graph.Directed())

	loader := LoaderVertex(cfg.Loader().Type)
	if err := g.AddVertex(loader, graph.VertexAttribute("shape", "cylinder")); err != nil {
		return nil, errors.Wrap(err, "unable to add loader vertex")
	}
	tokenizer := TokenizerVertex(cfg.Tokenizer().Type)
	if err := g.AddVertex(tokenizer, graph.VertexAttribute("shape", "note")); err != nil {
		return nil, errors.Wrap(err, "unable to add tokenizer vertex")
	}

	steps := cfg.Steps()
	prev := loader
	firstIndex := make(map[string]int, len(steps))
	for i, s := range steps {
		name := StepVertex(i, s.Type)
		colour, err := stepColour(i, len(steps))
		if err != nil {
			return nil, err
		}
		err = g.AddVertex(name,
			graph.VertexAttribute("shape", "box"),
			graph.VertexAttribute("color", colour))
		if err != nil {
			return nil, errors.Wrapf(err, "unable to add vertex %s", name)
		}
		if err := g.AddEdge(prev, name); err != nil {
			return nil, errors.Wrapf(err, "unable to add edge from %s to %s", prev, name)
		}
		if config.UsesTokenizer(s.Type) {
			if err := g.AddEdge(tokenizer, name, graph.EdgeAttribute("style", "dashed")); err != nil {
				return nil, errors.Wrapf(err, "unable to add tokenizer edge to %s", name)
			}
		}
		for _, req := range config.RequiresBefore(s.Type) {
			j, ok := firstIndex[req]
			if !ok {
				continue
			}
			if err := addRequirement(g, StepVertex(j, req), name); err != nil {
				return nil, err
			}
		}
		if _, seen := firstIndex[s.Type]; !seen {
			firstIndex[s.Type] = i
		}
		prev = name
	}
	return g, nil
}

// addRequirement marks that target needs source to have run. When the
// two steps are adjacent the flow edge is labelled instead.
func addRequirement(g graph.Graph[string, string], source, target string) error {
	err := g.AddEdge(source, target,
		graph.EdgeAttribute("style", "dotted"),
		graph.EdgeAttribute("label", "requires"))
	if errors.Is(err, graph.ErrEdgeAlreadyExists) {
		err = g.UpdateEdge(source, target, graph.EdgeAttribute("label", "requires"))
	}
	return errors.Wrapf(err, "unable to add requirement %s -> %s", source, target)
}

// stepColour interpolates from blue to red across the chain.
func stepColour(index, total int) (string, error) {
	red := 0
	if total > 1 {
		red = maxRGB * index / (total - 1)
	}
	blue := maxRGB - red
	c, err := colors.RGB(uint8(red), 0, uint8(blue)) //nolint
	if err != nil {
		return "", errors.Wrap(err, "unable to get colour")
	}
	return c.ToHEX().String(), nil
}

// DOT writes the graph of cfg to w.
func DOT(cfg *config.PipelineConfig, w io.Writer) error {
	g, err := Graph(cfg)
	if err != nil {
		return err
	}
	if err := draw.DOT(g, w, draw.GraphAttribute("rankdir", "LR")); err != nil {
		return errors.Wrap(err, "unable to render dot")
	}
	return nil
}

// WriteFile writes the DOT graph of cfg to path.
func WriteFile(cfg *config.PipelineConfig, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "unable to create file %s", path)
	}
	if err := DOT(cfg, file); err != nil {
		file.Close()
		return err
	}
	return errors.Wrapf(file.Close(), "unable to close file %s", path)
}
