package rewrite

import (
	"fmt"
	"regexp"

	"github.com/hostweave/go-rewriter/internal/config"
)

// Compile turns declarative rule definitions into an immutable RuleList.
// Compilation is deterministic and side-effect-free; any invalid pattern,
// out-of-range capture reference or bad redirect status is reported with the
// 0-based index of the offending rule.
func Compile(defs []config.RewriteRule) (RuleList, error) {
	rules := make(RuleList, 0, len(defs))

	for i, def := range defs {
		rule, err := compileRule(&def)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		rules = append(rules, rule)
	}

	return rules, nil
}

func compileRule(def *config.RewriteRule) (*Rule, error) {
	pattern, err := regexp.Compile(def.Pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}

	subject, err := parseSubject(def.Subject)
	if err != nil {
		return nil, err
	}

	action, status, err := parseAction(def.Action, def.Status)
	if err != nil {
		return nil, err
	}

	control, err := parseControl(def.Control)
	if err != nil {
		return nil, err
	}

	template, err := NewTemplate(def.Target, pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid target: %w", err)
	}

	conditions := make([]Condition, 0, len(def.Conditions))
	for j, c := range def.Conditions {
		cond, err := compileCondition(&c)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", j, err)
		}
		conditions = append(conditions, cond)
	}

	return &Rule{
		Subject:    subject,
		Pattern:    pattern,
		Conditions: conditions,
		Action:     action,
		Status:     status,
		Template:   template,
		Control:    control,
	}, nil
}

func compileCondition(def *config.Condition) (Condition, error) {
	pattern, err := regexp.Compile(def.Pattern)
	if err != nil {
		return Condition{}, fmt.Errorf("invalid pattern: %w", err)
	}

	cond := Condition{Pattern: pattern}
	switch {
	case def.Header != "" && def.Query != "":
		return Condition{}, fmt.Errorf("cannot test both header and query")
	case def.Header != "":
		cond.Source = SourceHeader
		cond.Name = def.Header
	case def.Query != "":
		cond.Source = SourceQuery
		cond.Name = def.Query
	default:
		return Condition{}, fmt.Errorf("either header or query is required")
	}

	return cond, nil
}

func parseSubject(s string) (Subject, error) {
	switch s {
	case "", "path":
		return SubjectPath, nil
	case "path_query":
		return SubjectPathQuery, nil
	default:
		return 0, fmt.Errorf("invalid subject %q", s)
	}
}

func parseAction(s string, status int) (Action, int, error) {
	switch s {
	case "", "rewrite":
		return ActionRewrite, 0, nil
	case "redirect":
		switch status {
		case 301, 302, 303, 307, 308:
			return ActionRedirect, status, nil
		default:
			return 0, 0, fmt.Errorf("invalid redirect status %d (must be 301, 302, 303, 307 or 308)", status)
		}
	default:
		return 0, 0, fmt.Errorf("invalid action %q", s)
	}
}

func parseControl(s string) (Control, error) {
	switch s {
	case "", "continue":
		return ControlContinue, nil
	case "stop":
		return ControlStop, nil
	case "loop":
		return ControlLoop, nil
	default:
		return 0, fmt.Errorf("invalid control %q", s)
	}
}
