package setup

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBinary(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, BinaryName)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0755))
	return path
}

func TestLoadDesktopConfig_Missing(t *testing.T) {
	cfg, err := LoadDesktopConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Empty(t, cfg.MCPServers)
}

func TestConfigure_PreservesOtherEntries(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{
  "globalShortcut": "Ctrl+Space",
  "mcpServers": {"other": {"command": "/usr/bin/other"}}
}`), 0644))

	entry, err := Configure(Options{
		ConfigPath:   configPath,
		BinaryPath:   writeBinary(t, dir),
		DataDir:      filepath.Join(dir, "data"),
		ProfilesFile: filepath.Join(dir, "profiles.yaml"),
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data"), entry.Env[DataDirEnv])

	raw, err := os.ReadFile(configPath)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "Ctrl+Space", decoded["globalShortcut"])

	cfg, err := LoadDesktopConfig(configPath)
	require.NoError(t, err)
	assert.Contains(t, cfg.MCPServers, "other")
	assert.Contains(t, cfg.MCPServers, ServerKey)
	assert.Equal(t, filepath.Join(dir, "profiles.yaml"), cfg.MCPServers[ServerKey].Env[ProfilesFileEnv])
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")

	removed, err := Remove(configPath)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = Configure(Options{ConfigPath: configPath, BinaryPath: writeBinary(t, dir)})
	require.NoError(t, err)

	removed, err = Remove(configPath)
	require.NoError(t, err)
	assert.True(t, removed)

	cfg, err := LoadDesktopConfig(configPath)
	require.NoError(t, err)
	assert.NotContains(t, cfg.MCPServers, ServerKey)
}

func TestGetStatusAndValidate(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")
	dataDir := filepath.Join(dir, "data")

	valid, issues := Validate(configPath)
	assert.False(t, valid)
	assert.NotEmpty(t, issues)

	_, err := Configure(Options{ConfigPath: configPath, BinaryPath: writeBinary(t, dir), DataDir: dataDir})
	require.NoError(t, err)

	status, err := GetStatus(configPath)
	require.NoError(t, err)
	assert.True(t, status.Configured)
	assert.Equal(t, dataDir, status.DataDir)
	assert.False(t, status.FeedbackDB)

	valid, issues = Validate(configPath)
	assert.True(t, valid, "missing data dir is only a warning: %v", issues)

	require.NoError(t, os.MkdirAll(dataDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "feedback.db"), nil, 0644))
	status, err = GetStatus(configPath)
	require.NoError(t, err)
	assert.True(t, status.FeedbackDB)
	assert.Empty(t, status.Issues)

	_, err = Configure(Options{ConfigPath: configPath, BinaryPath: filepath.Join(dir, "missing-binary"), DataDir: dataDir})
	require.NoError(t, err)
	valid, _ = Validate(configPath)
	assert.False(t, valid)
}

func TestCLI(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")
	binary := writeBinary(t, dir)

	var out bytes.Buffer
	cli := NewCLIWithIO(strings.NewReader("n\n"), &out)
	require.NoError(t, cli.Run([]string{"install", "--config", configPath, "--binary", binary}))
	assert.Contains(t, out.String(), "cancelled")
	_, err := os.Stat(configPath)
	assert.True(t, os.IsNotExist(err))

	out.Reset()
	cli = NewCLIWithIO(strings.NewReader("\n"), &out)
	require.NoError(t, cli.Run([]string{"install", "-c", configPath, "-b", binary, "-d", filepath.Join(dir, "data")}))
	assert.Contains(t, out.String(), "configured")

	out.Reset()
	require.NoError(t, cli.Run([]string{"status"}))
	assert.Contains(t, out.String(), binary)

	out.Reset()
	require.NoError(t, cli.Run([]string{"validate"}))
	assert.Contains(t, out.String(), "valid")

	out.Reset()
	require.NoError(t, cli.Run([]string{"remove"}))
	assert.Contains(t, out.String(), "removed")

	out.Reset()
	require.NoError(t, cli.Run([]string{"bogus"}))
	assert.Contains(t, out.String(), "Unknown command")
	assert.Contains(t, out.String(), "Usage:")
}
