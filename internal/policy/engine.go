// Package policy evaluates whether a requested tool call may run.
package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"
)

// Decision is the outcome of a policy evaluation.
type Decision struct {
	Allow   bool
	Reasons []string
}

// DefaultMaxImages is the getCatImage count limit used when none is configured.
const DefaultMaxImages = 10

// Option configures an Engine.
type Option func(*Engine)

// WithMaxImages sets the largest getCatImage count the policy allows.
func WithMaxImages(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxImages = n
		}
	}
}

// Engine is the OPA policy engine.
type Engine struct {
	query     rego.PreparedEvalQuery
	maxImages int
}

// NewEngine creates a new policy engine with the given policy content. Limits set through
// opts are passed to the policy as input.limits.
func NewEngine(ctx context.Context, policyContent string, opts ...Option) (*Engine, error) {
	r := rego.New(
		rego.Query("data.catai.tools.decision"),
		rego.Module("tool_policy.rego", policyContent),
		rego.SetRegoVersion(ast.RegoV1),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	e := &Engine{query: query, maxImages: DefaultMaxImages}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Evaluate checks whether toolName may run with args.
func (e *Engine) Evaluate(ctx context.Context, toolName string, args json.RawMessage) (Decision, error) {
	input := map[string]interface{}{
		"tool_name": toolName,
		"args":      map[string]interface{}{},
		"limits": map[string]interface{}{
			"max_images": e.maxImages,
		},
	}
	if len(args) > 0 {
		var argsMap map[string]interface{}
		if err := json.Unmarshal(args, &argsMap); err == nil {
			input["args"] = argsMap
		}
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Allow: true}, nil
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Decision{}, fmt.Errorf("unexpected policy result type %T", results[0].Expressions[0].Value)
	}

	var d Decision
	d.Allow, _ = obj["allow"].(bool)
	if reasons, ok := obj["reasons"].([]interface{}); ok {
		for _, r := range reasons {
			if s, ok := r.(string); ok {
				d.Reasons = append(d.Reasons, s)
			}
		}
	}
	sort.Strings(d.Reasons)
	return d, nil
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package catai.tools

deny contains "count must be at least 1" if {
	input.tool_name == "getCatImage"
	input.args.count < 1
}

deny contains msg if {
	input.tool_name == "getCatImage"
	input.args.count > input.limits.max_images
	msg := sprintf("count must not exceed %d", [input.limits.max_images])
}

deny contains "breed id too long" if {
	input.tool_name == "getCatImage"
	count(input.args.breed) > 16
}

decision := {"allow": count(deny) == 0, "reasons": deny}
`
