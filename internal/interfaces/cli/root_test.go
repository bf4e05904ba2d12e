package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
)

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)

	assert.Equal(t, "medkg", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)
	assert.True(t, cmd.SilenceUsage)
	assert.True(t, cmd.SilenceErrors)
}

func TestNewRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"serve", "load", "renormalize", "migrate", "resolve", "search", "neighbors", "stats"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}

	migrate, _, err := cmd.Find([]string{"migrate"})
	require.NoError(t, err)
	sub := make(map[string]bool)
	for _, c := range migrate.Commands() {
		sub[c.Name()] = true
	}
	assert.Equal(t, map[string]bool{"up": true, "down": true, "status": true, "force": true}, sub)
}

func TestNewRootCommand_GlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	pf := cmd.PersistentFlags()

	config := pf.Lookup("config")
	require.NotNil(t, config)
	assert.Equal(t, "c", config.Shorthand)

	output := pf.Lookup("output")
	require.NotNil(t, output)
	assert.Equal(t, "o", output.Shorthand)
	assert.Equal(t, OutputText, output.DefValue)

	level := pf.Lookup("log-level")
	require.NotNil(t, level)
	assert.Empty(t, level.DefValue)
}

func TestRootCommand_RejectsUnknownOutputFormat(t *testing.T) {
	isolateConfig(t)
	_, _, err := runCLI(t, "-o", "yaml", "stats")
	require.Error(t, err)
	assert.True(t, errors.IsMalformedInput(err))
}

func TestGetCLIContext_Missing(t *testing.T) {
	cmd := &cobra.Command{}
	_, err := GetCLIContext(cmd)
	assert.Error(t, err)

	cmd.SetContext(context.Background())
	_, err = GetCLIContext(cmd)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestPrintResult_WithoutContextWritesJSON(t *testing.T) {
	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	require.NoError(t, PrintResult(cmd, map[string]string{"name": "<阿司匹林>"}))
	assert.JSONEq(t, `{"name":"<阿司匹林>"}`, buf.String())
	assert.Contains(t, buf.String(), "<阿司匹林>")
}

func TestPrintSuccessAndError(t *testing.T) {
	cmd := &cobra.Command{}
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	PrintSuccess(cmd, "done")
	PrintError(cmd, errors.NotFound("entity not found"))
	PrintError(cmd, nil)

	assert.Equal(t, "OK: done\n", out.String())
	assert.Contains(t, errOut.String(), "Error: ")
	assert.Contains(t, errOut.String(), "entity not found")
}

func TestFormatTable(t *testing.T) {
	out := FormatTable([]string{"NAME", "TYPE"}, [][]string{
		{"乳腺癌", "Disease"},
		{"CDK4", "Gene"},
	})
	assert.Equal(t,
		"NAME  TYPE\n"+
			"----  -------\n"+
			"乳腺癌   Disease\n"+
			"CDK4  Gene\n", out)
}

func TestFormatTable_ShortRowsAndNoHeaders(t *testing.T) {
	assert.Empty(t, FormatTable(nil, [][]string{{"x"}}))

	out := FormatTable([]string{"A", "B", "C"}, [][]string{{"1"}})
	assert.Equal(t, "A  B  C\n-  -  -\n1     \n", out)
}

//Personal.AI order the ending
