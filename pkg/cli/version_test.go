package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	withJSONOutput(t, false)

	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	require.NoError(t, versionCmd.RunE(versionCmd, nil))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "netmock "), out)
	assert.Contains(t, out, "archives: HAR 1.2")
}

func TestVersionCommand_JSON(t *testing.T) {
	withJSONOutput(t, true)

	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	require.NoError(t, versionCmd.RunE(versionCmd, nil))

	var got VersionOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.NotEmpty(t, got.Version)
	assert.NotEmpty(t, got.Go)
}
