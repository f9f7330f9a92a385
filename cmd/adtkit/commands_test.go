package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/adtkit"
	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectRef(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("group", "", "")

	ref, err := objectRef(cmd, []string{"program", "zhello"}, "$tmp")
	require.NoError(t, err)
	assert.Equal(t, domain.KindProgram, ref.Kind)
	assert.Equal(t, "ZHELLO", ref.Name)
	assert.Equal(t, "$TMP", ref.Package)

	_, err = objectRef(cmd, []string{"function_module", "z_fm"}, "")
	assert.ErrorContains(t, err, "requires a function group")

	require.NoError(t, cmd.Flags().Set("group", "zfg"))
	ref, err = objectRef(cmd, []string{"function_module", "z_fm"}, "")
	require.NoError(t, err)
	assert.Equal(t, "ZFG", ref.Parent)

	_, err = objectRef(cmd, []string{"spreadsheet", "x"}, "")
	assert.ErrorContains(t, err, "unknown object kind")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "adtkit version "+adtkit.Version, strings.TrimSpace(out.String()))
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"create", "update", "delete", "check", "activate", "lock", "unlock", "push", "mcp", "serve", "session", "journal", "version"} {
		c, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, c.Name())
	}
}
