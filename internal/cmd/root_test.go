package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetVersionInfo(t *testing.T) {
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
			buildDate: "2026-08-29",
		},
		{
			name:      "set dev version",
			version:   "dev",
			commit:    "HEAD",
			buildDate: "unknown",
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

func TestVersionCommandOutput(t *testing.T) {
	origVersion := versionInfo.Version
	origCommit := versionInfo.Commit
	origBuildDate := versionInfo.BuildDate
	defer func() {
		versionInfo.Version = origVersion
		versionInfo.Commit = origCommit
		versionInfo.BuildDate = origBuildDate
	}()

	SetVersionInfo("2.1.0", "deadbeef", "2026-08-29")

	buf := new(bytes.Buffer)
	versionCmd.SetOut(buf)
	versionCmd.Run(versionCmd, nil)

	assert.Equal(t, "omnistor 2.1.0 (commit deadbeef, built 2026-08-29)\n", buf.String())
}

func TestTransferFlagsOptions(t *testing.T) {
	t.Run("empty flags yield zero options", func(t *testing.T) {
		var f transferFlags
		opts, err := f.options(nil)
		require.NoError(t, err)
		assert.Nil(t, opts.Matcher)
		assert.Nil(t, opts.Progress)
		assert.Zero(t, opts.RateLimit)
	})

	t.Run("include patterns build a matcher", func(t *testing.T) {
		f := transferFlags{includes: []string{"**/*.txt"}}
		opts, err := f.options(nil)
		require.NoError(t, err)
		require.NotNil(t, opts.Matcher)
		assert.True(t, opts.Matcher.Match("docs/readme.txt"))
		assert.False(t, opts.Matcher.Match("docs/readme.pdf"))
	})

	t.Run("invalid pattern fails", func(t *testing.T) {
		f := transferFlags{excludes: []string{"[unclosed"}}
		_, err := f.options(nil)
		assert.Error(t, err)
	})

	t.Run("explicit rate limit wins", func(t *testing.T) {
		f := transferFlags{rateLimit: 25}
		opts, err := f.options(nil)
		require.NoError(t, err)
		assert.Equal(t, 25.0, opts.RateLimit)
	})
}

func TestRegisteredCommands(t *testing.T) {
	want := []string{
		"ls", "stat", "get", "put", "cp", "mv", "rm",
		"mkdir", "presign", "apply", "serve", "doctor", "version",
	}

	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, n := range want {
		assert.True(t, names[n], "command %q not registered", n)
	}
}
