package rewrite

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultMaxIterations caps how often a loop-control rule may restart
// evaluation before the engine aborts the request.
const DefaultMaxIterations = 100

// Request carries the parts of an incoming request the engine looks at.
type Request struct {
	Path     string
	RawQuery string
	Header   http.Header
}

// Decision is the outcome of one evaluation: either the request continues
// downstream with Target as its new path and query, or the client is sent a
// redirect with the given status and Target as the location.
type Decision struct {
	Redirect bool
	Status   int
	Target   string
}

// LoopError reports an evaluation that exceeded the iteration cap. It names
// the last matched rule and the subject at abort time so rule authoring
// mistakes can be diagnosed from the log.
type LoopError struct {
	RuleIndex  int
	Subject    string
	Iterations int
}

func (e *LoopError) Error() string {
	return fmt.Sprintf("rewrite loop aborted after %d iterations at rule %d with subject %q",
		e.Iterations, e.RuleIndex, e.Subject)
}

// Engine evaluates rule lists against requests. It holds no per-request
// state and is safe for concurrent use.
type Engine struct {
	// MaxIterations overrides DefaultMaxIterations when positive.
	MaxIterations int
}

// NewEngine creates an engine with the default iteration cap.
func NewEngine() *Engine {
	return &Engine{MaxIterations: DefaultMaxIterations}
}

// matchState is the transient, per-evaluation state. It is never shared
// across requests.
type matchState struct {
	path  string
	query string
}

// subject returns the string the given rule kind matches against.
func (s *matchState) subject(kind Subject) string {
	if kind == SubjectPathQuery && s.query != "" {
		return s.path + "?" + s.query
	}
	return s.path
}

// set replaces the subject with an expanded target. A target containing "?"
// always replaces the query; otherwise a path rewrite keeps the current
// query and a path_query rewrite clears it.
func (s *matchState) set(kind Subject, target string) {
	if path, query, found := strings.Cut(target, "?"); found {
		s.path = path
		s.query = query
		return
	}
	s.path = target
	if kind == SubjectPathQuery {
		s.query = ""
	}
}

// pathAndQuery renders the current subject as a path-and-query string.
func (s *matchState) pathAndQuery() string {
	if s.query != "" {
		return s.path + "?" + s.query
	}
	return s.path
}

// Apply evaluates the rule list against the request. It returns either a
// Decision or a *LoopError when a loop-control rule exceeded the iteration
// cap. A request matching no rule comes back as a non-redirect Decision
// carrying the unchanged subject.
func (e *Engine) Apply(rules RuleList, req *Request) (Decision, error) {
	state := matchState{path: req.Path, query: req.RawQuery}

	// Conditions test the original request's query parameters, not the
	// rewritten subject.
	queryValues, err := url.ParseQuery(req.RawQuery)
	if err != nil {
		log.Debug().Err(err).Str("query", req.RawQuery).Msg("unparsable query string")
		queryValues = url.Values{}
	}

	maxIterations := e.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	iterations := 0
	index := 0
	for index < len(rules) {
		rule := rules[index]

		subject := state.subject(rule.Subject)
		captures := rule.Pattern.FindStringSubmatch(subject)
		if captures == nil || !conditionsMatch(rule.Conditions, req.Header, queryValues) {
			index++
			continue
		}

		target := rule.Template.Expand(captures)

		if rule.Action == ActionRedirect {
			return Decision{Redirect: true, Status: rule.Status, Target: target}, nil
		}

		state.set(rule.Subject, target)

		switch rule.Control {
		case ControlStop:
			return Decision{Target: state.pathAndQuery()}, nil
		case ControlLoop:
			iterations++
			if iterations > maxIterations {
				return Decision{}, &LoopError{
					RuleIndex:  index,
					Subject:    state.pathAndQuery(),
					Iterations: iterations,
				}
			}
			index = 0
		default:
			index++
		}
	}

	return Decision{Target: state.pathAndQuery()}, nil
}

// conditionsMatch reports whether every condition of a rule matches its
// source value. A source that is not present never matches.
func conditionsMatch(conditions []Condition, header http.Header, query url.Values) bool {
	for _, cond := range conditions {
		var values []string
		switch cond.Source {
		case SourceHeader:
			values = header.Values(cond.Name)
		case SourceQuery:
			values = query[cond.Name]
		}
		if len(values) == 0 || !cond.Pattern.MatchString(values[0]) {
			return false
		}
	}
	return true
}
