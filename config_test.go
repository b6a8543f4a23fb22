package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fansqz/go-tracer/constants"
	"github.com/fansqz/go-tracer/debugger"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
breakpoints = ["demo.py:12", "demo.py:add"]
skip = ["lib.*"]
events = "json"
idle_timeout = "30s"
stop_on_entry = true

[log]
level = "debug"
`

func parseFlags(t *testing.T, args ...string) *pflag.FlagSet {
	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	addRunFlags(flags)
	require.NoError(t, flags.Parse(args))
	return flags
}

func TestLoadConfig(t *testing.T) {
	file := filepath.Join(t.TempDir(), "tracer.toml")
	require.NoError(t, os.WriteFile(file, []byte(testConfig), 0644))

	cfg, err := LoadConfig(file)
	require.NoError(t, err)
	require.NoError(t, cfg.ApplyFlags(parseFlags(t)))
	assert.Equal(t, []string{"demo.py:12", "demo.py:add"}, cfg.Breakpoints)
	assert.Equal(t, "json", cfg.Events)
	assert.Equal(t, "auto", cfg.CaseFold)
	assert.Equal(t, "debug", cfg.Log.Level)

	option, err := cfg.StartOption("demo.toml")
	require.NoError(t, err)
	assert.Equal(t, "demo.toml", option.ProgramFile)
	assert.Equal(t, []*debugger.Breakpoint{
		{File: "demo.py", Line: 12},
		{File: "demo.py", Func: "add"},
	}, option.BreakPoints)
	assert.Equal(t, []string{"lib.*"}, option.SkipModules)
	assert.Equal(t, 30*time.Second, option.IdleTimeout)
	assert.True(t, option.StopOnEntry)
	assert.Equal(t, constants.CaseFoldAuto, option.CaseFold)
}

func TestConfigFlagsOverride(t *testing.T) {
	file := filepath.Join(t.TempDir(), "tracer.toml")
	require.NoError(t, os.WriteFile(file, []byte(testConfig), 0644))
	cfg, err := LoadConfig(file)
	require.NoError(t, err)

	flags := parseFlags(t,
		"--break", "demo.py:3", "--break-fn", "demo.py:main",
		"--events", "text", "--case-fold", "lower", "--stop-on-entry=false", "--threads", "a,b")
	require.NoError(t, cfg.ApplyFlags(flags))
	assert.Equal(t, []string{"demo.py:3", "demo.py:main"}, cfg.Breakpoints)
	assert.Equal(t, "text", cfg.Events)
	assert.Equal(t, "lower", cfg.CaseFold)
	assert.False(t, cfg.StopOnEntry)
	assert.Equal(t, []string{"a", "b"}, cfg.Threads)
	// 没有设置的参数保留配置文件的值
	assert.Equal(t, []string{"lib.*"}, cfg.Skip)
	assert.Equal(t, "30s", cfg.IdleTimeout)
}

func TestConfigValidate(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "warn", cfg.Log.Level)

	assert.Error(t, cfg.ApplyFlags(parseFlags(t, "--events", "xml")))

	cfg, _ = LoadConfig("")
	assert.Error(t, cfg.ApplyFlags(parseFlags(t, "--case-fold", "upper")))

	cfg, _ = LoadConfig("")
	assert.Error(t, cfg.ApplyFlags(parseFlags(t, "--idle-timeout", "soon")))

	cfg, _ = LoadConfig("")
	cfg.Breakpoints = []string{"demo.py"}
	_, err = cfg.StartOption("demo.toml")
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestUseColor(t *testing.T) {
	assert.True(t, useColor("on", false))
	assert.False(t, useColor("off", true))
	assert.True(t, useColor("auto", true))
	assert.False(t, useColor("auto", false))
}
