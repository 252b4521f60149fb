package tool

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/tobhei/docuchat/logging"
	"github.com/tobhei/docuchat/model"
	"github.com/tobhei/docuchat/retrieve"
	"github.com/tobhei/docuchat/structured"
	"github.com/tobhei/docuchat/visualize"
)

const analysisPrompt = `You are a data analysis assistant.
From the following text, identify numerical data and return both extracted data and a statistical analysis.

Instructions:
1. Always return JSON only, never explanations.
2. Use this schema:
{
"labels": ["Label1", "Label2", ...],
"values": [Number1, Number2, ...],
"suggested_graph": "<bar|line|pie|histogram>"
}
3. "labels" must be strings (e.g., years, names, categories).
4. "values" must be numbers (int or float).
5. Choose "suggested_graph" based on data: "line" for sequential data, "bar" for categorical comparison, "pie" for small sets adding to a whole, "histogram" for raw distributions.
6. If no data is found, return: {}

Text to analyze:
%s`

// AnalyzerTool extracts numerical data from the document via the model,
// validates it through the repair pipeline, recomputes the statistics
// server-side and renders a chart. The user the chart belongs to is fixed
// at construction; tools are built per user service.
type AnalyzerTool struct {
	model     model.Model
	retriever retrieve.Retriever
	repairer  *structured.Repairer
	renderer  *visualize.Renderer
	userID    string
	logger    logging.Logger
}

// NewAnalyzerTool builds the numeric analysis capability. renderer may be
// nil, in which case no chart is produced.
func NewAnalyzerTool(m model.Model, r retrieve.Retriever, rep *structured.Repairer, renderer *visualize.Renderer, userID string, logger logging.Logger) *AnalyzerTool {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &AnalyzerTool{model: m, retriever: r, repairer: rep, renderer: renderer, userID: userID, logger: logger}
}

// Name implements Tool.
func (t *AnalyzerTool) Name() string { return "data_analyzer" }

// Description implements Tool.
func (t *AnalyzerTool) Description() string {
	return "Extract and analyze numerical data from the document (stats like mean, sum) and chart it."
}

// Invoke implements Tool.
func (t *AnalyzerTool) Invoke(ctx context.Context, input string) (string, error) {
	query := strings.TrimSpace(input)
	if query == "" {
		query = "full document"
	}

	text, err := t.retriever.Query(ctx, query, 5)
	if err != nil {
		if errors.Is(err, retrieve.ErrNoIndex) {
			return "", fmt.Errorf("no document has been uploaded yet")
		}
		return "", fmt.Errorf("analyzing data: %w", err)
	}

	out, err := t.model.Complete(ctx, fmt.Sprintf(analysisPrompt, text))
	if err != nil {
		return "", fmt.Errorf("analyzing data: %w", err)
	}

	_, raw, err := t.repairer.Parse(ctx, out, structured.EqualLengthArrays("labels", "values"))
	if err != nil {
		var exhausted *structured.RepairExhaustedError
		if errors.As(err, &exhausted) {
			// Degraded but reportable outcome.
			return "No numerical data could be extracted from the document.", nil
		}
		return "", err
	}

	labels, values := parallelArrays(raw)
	if len(values) == 0 {
		return "No numerical data found in the document.", nil
	}

	// Never trust the model's arithmetic; recompute.
	result := raw
	result, _ = sjson.Set(result, "analysis.mean", mean(values))
	result, _ = sjson.Set(result, "analysis.sum", sum(values))
	result, _ = sjson.Set(result, "analysis.min", minOf(values))
	result, _ = sjson.Set(result, "analysis.max", maxOf(values))
	result, _ = sjson.Set(result, "analysis.count", len(values))
	result, _ = sjson.Set(result, "description",
		fmt.Sprintf("Extracted %d data points from the document.", len(values)))

	if t.renderer != nil {
		kind := visualize.ParseKind(gjson.Get(raw, "suggested_graph").String())
		ref, rerr := t.renderer.Render(t.userID, visualize.Dataset{Labels: labels, Values: values}, kind)
		if rerr != nil {
			// Chart failures degrade to a text-only answer.
			t.logger.Warn("tool.analyzer.chart_failed", "error", rerr.Error())
		} else {
			result, _ = sjson.Set(result, "image_url", ref)
		}
	}

	return result, nil
}

func parallelArrays(raw string) ([]string, []float64) {
	ls := gjson.Get(raw, "labels").Array()
	vs := gjson.Get(raw, "values").Array()
	n := len(ls)
	if len(vs) < n {
		n = len(vs)
	}
	labels := make([]string, 0, n)
	values := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if vs[i].Type != gjson.Number {
			continue
		}
		labels = append(labels, ls[i].String())
		values = append(values, vs[i].Float())
	}
	return labels, values
}

func mean(vs []float64) float64 { return sum(vs) / float64(len(vs)) }

func sum(vs []float64) float64 {
	s := 0.0
	for _, v := range vs {
		s += v
	}
	return s
}

func minOf(vs []float64) float64 {
	m := math.Inf(1)
	for _, v := range vs {
		m = math.Min(m, v)
	}
	return m
}

func maxOf(vs []float64) float64 {
	m := math.Inf(-1)
	for _, v := range vs {
		m = math.Max(m, v)
	}
	return m
}
