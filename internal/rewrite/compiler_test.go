package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostweave/go-rewriter/internal/config"
)

func TestCompile(t *testing.T) {
	rules, err := Compile([]config.RewriteRule{
		{
			Pattern: "^/old/(.*)$",
			Target:  "/new/$1",
			Control: "stop",
		},
		{
			Pattern: "^/legacy$",
			Action:  "redirect",
			Status:  301,
			Target:  "https://example.com/",
			Conditions: []config.Condition{
				{Header: "User-Agent", Pattern: "Mozilla"},
				{Query: "v", Pattern: "^2$"},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, rules, 2)

	assert.Equal(t, ActionRewrite, rules[0].Action)
	assert.Equal(t, ControlStop, rules[0].Control)
	assert.Equal(t, SubjectPath, rules[0].Subject)

	assert.Equal(t, ActionRedirect, rules[1].Action)
	assert.Equal(t, 301, rules[1].Status)
	require.Len(t, rules[1].Conditions, 2)
	assert.Equal(t, SourceHeader, rules[1].Conditions[0].Source)
	assert.Equal(t, "User-Agent", rules[1].Conditions[0].Name)
	assert.Equal(t, SourceQuery, rules[1].Conditions[1].Source)
	assert.Equal(t, "v", rules[1].Conditions[1].Name)
}

func TestCompileDefaults(t *testing.T) {
	rules, err := Compile([]config.RewriteRule{
		{Pattern: "^/a$", Target: "/b"},
	})
	require.NoError(t, err)
	require.Len(t, rules, 1)

	assert.Equal(t, SubjectPath, rules[0].Subject)
	assert.Equal(t, ActionRewrite, rules[0].Action)
	assert.Equal(t, ControlContinue, rules[0].Control)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		defs    []config.RewriteRule
		wantErr string
	}{
		{
			name: "invalid pattern",
			defs: []config.RewriteRule{
				{Pattern: "^/ok$", Target: "/ok"},
				{Pattern: "^/x($", Target: "/y"},
			},
			wantErr: "rule 1",
		},
		{
			name: "out of range capture",
			defs: []config.RewriteRule{
				{Pattern: "^/old/(.*)$", Target: "/new/$2"},
			},
			wantErr: "rule 0",
		},
		{
			name: "unknown named capture",
			defs: []config.RewriteRule{
				{Pattern: "^/old/(?P<tail>.*)$", Target: "/new/${head}"},
			},
			wantErr: "rule 0",
		},
		{
			name: "invalid redirect status",
			defs: []config.RewriteRule{
				{Pattern: "^/a$", Action: "redirect", Status: 200, Target: "/b"},
			},
			wantErr: "invalid redirect status 200",
		},
		{
			name: "missing redirect status",
			defs: []config.RewriteRule{
				{Pattern: "^/a$", Action: "redirect", Target: "/b"},
			},
			wantErr: "invalid redirect status",
		},
		{
			name: "invalid condition pattern",
			defs: []config.RewriteRule{
				{
					Pattern:    "^/a$",
					Target:     "/b",
					Conditions: []config.Condition{{Header: "Accept", Pattern: "($"}},
				},
			},
			wantErr: "condition 0",
		},
		{
			name: "condition without source",
			defs: []config.RewriteRule{
				{
					Pattern:    "^/a$",
					Target:     "/b",
					Conditions: []config.Condition{{Pattern: "x"}},
				},
			},
			wantErr: "either header or query",
		},
		{
			name: "invalid subject",
			defs: []config.RewriteRule{
				{Pattern: "^/a$", Subject: "host", Target: "/b"},
			},
			wantErr: "invalid subject",
		},
		{
			name: "invalid control",
			defs: []config.RewriteRule{
				{Pattern: "^/a$", Target: "/b", Control: "restart"},
			},
			wantErr: "invalid control",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.defs)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCompileDeterministic(t *testing.T) {
	defs := []config.RewriteRule{
		{Pattern: "^/old/(.*)$", Target: "/new/$1", Control: "stop"},
		{Pattern: "^/gone$", Action: "redirect", Status: 308, Target: "/moved"},
	}

	a, err := Compile(defs)
	require.NoError(t, err)
	b, err := Compile(defs)
	require.NoError(t, err)

	require.Len(t, b, len(a))
	for i := range a {
		assert.Equal(t, a[i].Pattern.String(), b[i].Pattern.String())
		assert.Equal(t, a[i].Template.String(), b[i].Template.String())
		assert.Equal(t, a[i].Action, b[i].Action)
		assert.Equal(t, a[i].Control, b[i].Control)
		assert.Equal(t, a[i].Status, b[i].Status)
	}
}
