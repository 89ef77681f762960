package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errwrap "github.com/3leaps/vepclient/internal/errors"
)

func TestSetVersionInfo(t *testing.T) {
	// Save original values
	origVersion := versionInfo.Version
	origCommit := versionInfo.Commit
	origBuildDate := versionInfo.BuildDate
	defer func() {
		versionInfo.Version = origVersion
		versionInfo.Commit = origCommit
		versionInfo.BuildDate = origBuildDate
	}()

	tests := []struct {
		name      string
		version   string
		commit    string
		buildDate string
	}{
		{
			name:      "set all values",
			version:   "1.0.0",
			commit:    "abc123",
			buildDate: "2024-01-15",
		},
		{
			name:      "set dev version",
			version:   "dev",
			commit:    "HEAD",
			buildDate: "unknown",
		},
		{
			name:      "set empty values",
			version:   "",
			commit:    "",
			buildDate: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetVersionInfo(tt.version, tt.commit, tt.buildDate)

			assert.Equal(t, tt.version, versionInfo.Version)
			assert.Equal(t, tt.commit, versionInfo.Commit)
			assert.Equal(t, tt.buildDate, versionInfo.BuildDate)
		})
	}
}

// resetFlags restores every flag in the tree to its default so tests can
// run the shared rootCmd repeatedly.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// runCLI executes the command line with an isolated config and returns
// stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("VEPCLIENT_POLL_INTERVAL", "10ms")

	resetFlags(rootCmd)
	loadedConfig = nil

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	orig := versionInfo
	t.Cleanup(func() { versionInfo = orig })
	SetVersionInfo("1.2.3", "abc123", "2026-01-02")

	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "vepclient 1.2.3 (commit abc123, built 2026-01-02")

	out, err = runCLI(t, "version", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version":"1.2.3"`)
}

func TestExecute_UnknownCommand(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	resetFlags(rootCmd)
	var errOut bytes.Buffer
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs([]string{"no-such-command"})
	t.Cleanup(func() {
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	code := Execute(context.Background())
	assert.Equal(t, errwrap.ExitInvalidArgument, code)
	assert.Contains(t, errOut.String(), "unknown command")
}

func TestInvalidConfig(t *testing.T) {
	t.Setenv("VEPCLIENT_POLL_INTERVAL", "0s")
	resetFlags(rootCmd)
	loadedConfig = nil
	rootCmd.SetArgs([]string{"session", "new"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	err := rootCmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Equal(t, errwrap.ExitInvalidArgument, errwrap.CodeOf(err))
}
