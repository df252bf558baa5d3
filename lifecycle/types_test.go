package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeCreate, ModeUpdate, ModeUpsert} {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	got, err := ParseMode(" Upsert ")
	require.NoError(t, err)
	assert.Equal(t, ModeUpsert, got)

	_, err = ParseMode("merge")
	assert.Error(t, err)
}

func TestParseScope(t *testing.T) {
	s, err := ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, ScopeSubjectOnly, s)

	s, err = ParseScope("subgraph")
	require.NoError(t, err)
	assert.Equal(t, ScopeSubgraph, s)

	_, err = ParseScope("everything")
	assert.Error(t, err)
}

func TestRequestFromYAML(t *testing.T) {
	doc := `
mode: update
graph: urn:kg:graph:test
target: urn:e
parent: urn:p
`
	var req Request
	require.NoError(t, yaml.Unmarshal([]byte(doc), &req))
	assert.Equal(t, ModeUpdate, req.Mode)
	assert.Equal(t, "urn:e", req.TargetURI)
	assert.Equal(t, "urn:p", req.ParentURI)

	err := yaml.Unmarshal([]byte("mode: merge\n"), &req)
	assert.Error(t, err)
}
