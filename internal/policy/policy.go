// Package policy runs audit rules over a compiled domain tree. Findings are
// advisory: they point at suspicious isolation configurations (domains with
// no CPUs, duplicated references, secure CPUs without a mode mask) but never
// fail the run.
package policy

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/open-policy-agent/opa/rego"

	"github.com/embeddedkit/isogen/internal/domains"
)

//go:embed audit.rego
var auditFS embed.FS

// Engine evaluates the embedded audit policies against a domain tree.
type Engine struct {
	queries map[string]rego.PreparedEvalQuery
}

// Finding is one audit rule hit.
type Finding struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Domain   string `json:"domain"`
	Message  string `json:"message"`
}

// Summary provides aggregate counts.
type Summary struct {
	Total    int `json:"total"`
	Warnings int `json:"warnings"`
	Info     int `json:"info"`
}

// Result contains the evaluation results.
type Result struct {
	Findings []Finding
	Summary  Summary
}

// New prepares the audit queries from the embedded policy module.
func New() (*Engine, error) {
	content, err := auditFS.ReadFile("audit.rego")
	if err != nil {
		return nil, fmt.Errorf("loading embedded audit policy: %w", err)
	}
	module := rego.Module("audit.rego", string(content))

	engine := &Engine{queries: make(map[string]rego.PreparedEvalQuery)}

	for name, query := range map[string]string{
		"findings": "data.isogen.audit.findings",
		"summary":  "data.isogen.audit.summary",
	} {
		prepared, err := rego.New(module, rego.Query(query)).PrepareForEval(context.Background())
		if err != nil {
			return nil, fmt.Errorf("preparing %s query: %w", name, err)
		}
		engine.queries[name] = prepared
	}

	return engine, nil
}

// Audit evaluates the policies against the compiled tree.
func (e *Engine) Audit(ctx context.Context, tree *domains.Tree) (*Result, error) {
	input, err := structToMap(tree)
	if err != nil {
		return nil, fmt.Errorf("converting domain tree: %w", err)
	}

	result := &Result{}

	rs, err := e.queries["findings"].Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("evaluating findings: %w", err)
	}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		raw, ok := rs[0].Expressions[0].Value.([]interface{})
		if ok {
			for _, f := range raw {
				fmap, ok := f.(map[string]interface{})
				if !ok {
					continue
				}
				result.Findings = append(result.Findings, Finding{
					Rule:     getString(fmap, "rule"),
					Severity: getString(fmap, "severity"),
					Domain:   getString(fmap, "domain"),
					Message:  getString(fmap, "message"),
				})
			}
		}
	}

	// Rego sets come back unordered; the report must not.
	sort.Slice(result.Findings, func(i, j int) bool {
		a, b := result.Findings[i], result.Findings[j]
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		if a.Domain != b.Domain {
			return a.Domain < b.Domain
		}
		return a.Message < b.Message
	})

	rs, err = e.queries["summary"].Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("evaluating summary: %w", err)
	}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		smap, ok := rs[0].Expressions[0].Value.(map[string]interface{})
		if ok {
			result.Summary = Summary{
				Total:    getInt(smap, "total"),
				Warnings: getInt(smap, "warnings"),
				Info:     getInt(smap, "info"),
			}
		}
	}

	return result, nil
}

func structToMap(v any) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	err = json.Unmarshal(data, &result)
	return result, err
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getInt(m map[string]interface{}, key string) int {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		case json.Number:
			i, _ := n.Int64()
			return int(i)
		}
	}
	return 0
}
