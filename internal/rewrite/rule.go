package rewrite

import "regexp"

// Subject selects the string a rule's pattern is matched against.
type Subject int

const (
	// SubjectPath matches against the request path only
	SubjectPath Subject = iota
	// SubjectPathQuery matches against the path including the query string
	SubjectPathQuery
)

// Control governs how evaluation proceeds after a rule rewrote the subject.
type Control int

const (
	// ControlContinue resumes evaluation at the rule after the matching one
	ControlContinue Control = iota
	// ControlStop halts evaluation with the current subject
	ControlStop
	// ControlLoop restarts evaluation from the first rule
	ControlLoop
)

// Action is what a matching rule does with the expanded target.
type Action int

const (
	// ActionRewrite replaces the subject in place
	ActionRewrite Action = iota
	// ActionRedirect short-circuits evaluation with an HTTP redirect
	ActionRedirect
)

// ConditionSource names where a condition reads its value from.
type ConditionSource int

const (
	// SourceHeader reads a request header value
	SourceHeader ConditionSource = iota
	// SourceQuery reads a query parameter value
	SourceQuery
)

// Condition is an auxiliary regex test a rule requires in addition to its
// pattern. An absent header or query parameter never matches.
type Condition struct {
	Source  ConditionSource
	Name    string
	Pattern *regexp.Regexp
}

// Rule is one compiled rewrite or redirect rule. Rules are immutable after
// compilation and safe for concurrent use.
type Rule struct {
	Subject    Subject
	Pattern    *regexp.Regexp
	Conditions []Condition
	Action     Action
	Status     int // redirect status code, 0 for rewrites
	Template   *Template
	Control    Control
}

// RuleList is an ordered, immutable sequence of compiled rules.
type RuleList []*Rule
