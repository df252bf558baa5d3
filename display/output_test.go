package display

import (
	"bytes"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/kgraph/errors"
)

type sample struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

func TestStructured(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Structured(&buf, FormatJSON, sample{Name: "a", Count: 2}))
	assert.JSONEq(t, `{"name":"a","count":2}`, buf.String())

	buf.Reset()
	require.NoError(t, Structured(&buf, FormatYAML, sample{Name: "a", Count: 2}))
	assert.YAMLEq(t, "name: a\ncount: 2\n", buf.String())

	err := Structured(&buf, "xml", sample{})
	assert.Equal(t, errors.InvalidStatement, errors.KindOf(err))
	assert.Error(t, Structured(&buf, FormatText, sample{}), "text is not structured")
}

func TestCheckFormat(t *testing.T) {
	assert.NoError(t, CheckFormat(FormatText))
	assert.NoError(t, CheckFormat(FormatYAML))
	assert.Error(t, CheckFormat("csv"))
}

func TestTable(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	var buf bytes.Buffer
	require.NoError(t, Table(&buf, []string{"Key", "Value"}, [][]string{{"query.max_limit", "10000"}}))
	assert.Contains(t, buf.String(), "query.max_limit")
	assert.Contains(t, buf.String(), "10000")
}
