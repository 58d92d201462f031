// Package mcptool exposes the matcher as a Model Context Protocol tool.
package mcptool

import (
	"context"

	"resumatch/internal/common"
	"resumatch/internal/errors"
	"resumatch/internal/skills"
	"resumatch/internal/types"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolName is the name clients call.
const ToolName = "resume_fit"

// FitInput is the tool's argument object.
type FitInput struct {
	Resume         string          `json:"resume" jsonschema:"Plain-text resume"`
	JobDescription string          `json:"job_description" jsonschema:"Plain-text job description"`
	Weights        *skills.Weights `json:"weights,omitempty" jsonschema:"Relative category weights (technical, soft, operational); defaults to the server configuration"`
}

// CategoryOutput is the score of one skill category.
type CategoryOutput struct {
	Category string   `json:"category"`
	Active   bool     `json:"active" jsonschema:"Whether the job description asks for skills in this category"`
	Weight   float64  `json:"weight"`
	Percent  float64  `json:"percent"`
	Matched  []string `json:"matched"`
	Missing  []string `json:"missing"`
}

// RecommendationOutput is one piece of advice.
type RecommendationOutput struct {
	Kind  string `json:"kind"`
	Skill string `json:"skill,omitempty"`
	Text  string `json:"text"`
}

// FitOutput is the tool's structured result.
type FitOutput struct {
	Overall         float64                `json:"overall" jsonschema:"Weighted fit score from 0 to 100"`
	Verdict         string                 `json:"verdict"`
	Summary         string                 `json:"summary"`
	Weights         skills.Weights         `json:"weights"`
	Categories      []CategoryOutput       `json:"categories"`
	Matched         []string               `json:"matched"`
	Missing         []string               `json:"missing"`
	Recommendations []RecommendationOutput `json:"recommendations"`
}

// NewServer returns an MCP server with the resume_fit tool registered.
func NewServer(runner *common.Runner, version string, logger *errors.Logger) *mcp.Server {
	if logger == nil {
		logger = errors.Discard()
	}
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "resumatch",
		Version: version,
	}, nil)
	registerResumeFit(server, runner, logger)
	return server
}

// Serve runs server over stdin and stdout until the client disconnects or
// ctx is cancelled.
func Serve(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

func registerResumeFit(server *mcp.Server, runner *common.Runner, logger *errors.Logger) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolName,
		Description: "Score how well a resume fits a job description. Returns per-category scores (technical, soft, operational), the weighted overall score, a verdict, matched and missing skills, and recommendations for closing the gaps.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input FitInput) (*mcp.CallToolResult, FitOutput, error) {
		report, err := runner.Run(ctx, types.AnalysisRequest{
			Resume:         input.Resume,
			JobDescription: input.JobDescription,
			Weights:        input.Weights,
			Source:         "mcp",
		})
		if err != nil {
			logger.LogError(err, "resume_fit call failed")
			return nil, FitOutput{}, err
		}
		return nil, toOutput(report), nil
	})
}

func toOutput(report *types.AnalysisReport) FitOutput {
	res := report.Result
	out := FitOutput{
		Overall:         res.Overall,
		Verdict:         res.Verdict,
		Summary:         res.Summary,
		Weights:         report.Weights,
		Categories:      make([]CategoryOutput, 0, len(res.Categories)),
		Matched:         nonNil(res.Matched),
		Missing:         nonNil(res.Missing),
		Recommendations: make([]RecommendationOutput, 0, len(res.Recommendations)),
	}
	for _, c := range res.Categories {
		out.Categories = append(out.Categories, CategoryOutput{
			Category: string(c.Category),
			Active:   c.Active,
			Weight:   c.Weight,
			Percent:  c.Percent,
			Matched:  nonNil(c.Matched),
			Missing:  nonNil(c.Missing),
		})
	}
	for _, r := range res.Recommendations {
		out.Recommendations = append(out.Recommendations, RecommendationOutput{
			Kind:  string(r.Kind),
			Skill: r.Skill,
			Text:  r.Text,
		})
	}
	return out
}

// nonNil keeps empty lists as [] in the JSON output.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
