package main

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fansqz/go-tracer/constants"
	"github.com/fansqz/go-tracer/debugger"
	"github.com/fansqz/go-tracer/protocol"
	"github.com/spf13/pflag"
)

// Config 调试配置，可以从TOML文件加载，命令行参数会覆盖文件中的值
//
//	breakpoints = ["demo.py:12", "demo.py:add"]
//	skip = ["lib.*"]
//	events = "json"
//
//	[log]
//	level = "debug"
type Config struct {
	Breakpoints     []string  `toml:"breakpoints"`
	Skip            []string  `toml:"skip"`
	SkipFunctions   []string  `toml:"skip_functions"`
	Threads         []string  `toml:"threads"`
	CaseFold        string    `toml:"case_fold"`
	Events          string    `toml:"events"`
	Color           string    `toml:"color"`
	Script          string    `toml:"script"`
	Record          string    `toml:"record"`
	StopOnEntry     bool      `toml:"stop_on_entry"`
	IgnoreFirstCall bool      `toml:"ignore_first_call"`
	IdleTimeout     string    `toml:"idle_timeout"`
	Log             LogConfig `toml:"log"`
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

func defaultConfig() *Config {
	return &Config{
		CaseFold: string(constants.CaseFoldAuto),
		Events:   string(constants.EventFormatText),
		Color:    "auto",
		Log:      LogConfig{Level: "warn"},
	}
}

// LoadConfig 加载配置文件，path为空时返回默认配置
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyFlags 用命令行中显式设置的参数覆盖配置
func (c *Config) ApplyFlags(flags *pflag.FlagSet) error {
	var err error
	stringSlice := func(name string, dst *[]string) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetStringSlice(name)
		}
	}
	str := func(name string, dst *string) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetString(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetBool(name)
		}
	}
	stringSlice("break", &c.Breakpoints)
	if err == nil && flags.Changed("break-fn") {
		var fns []string
		if fns, err = flags.GetStringSlice("break-fn"); err == nil {
			c.Breakpoints = append(c.Breakpoints, fns...)
		}
	}
	stringSlice("skip", &c.Skip)
	stringSlice("skip-fn", &c.SkipFunctions)
	stringSlice("threads", &c.Threads)
	str("case-fold", &c.CaseFold)
	str("events", &c.Events)
	str("color", &c.Color)
	str("script", &c.Script)
	str("record", &c.Record)
	str("idle-timeout", &c.IdleTimeout)
	str("log-level", &c.Log.Level)
	str("log-file", &c.Log.File)
	boolean("stop-on-entry", &c.StopOnEntry)
	boolean("ignore-first-call", &c.IgnoreFirstCall)
	if err != nil {
		return err
	}
	return c.Validate()
}

// Validate 检查枚举值
func (c *Config) Validate() error {
	switch constants.CaseFoldType(c.CaseFold) {
	case constants.CaseFoldAuto, constants.CaseFoldNone, constants.CaseFoldLower:
	default:
		return fmt.Errorf("unsupported case_fold %q (must be auto, sensitive or lower)", c.CaseFold)
	}
	switch constants.EventFormat(c.Events) {
	case constants.EventFormatText, constants.EventFormatJSON, constants.EventFormatDAP:
	default:
		return fmt.Errorf("unsupported events %q (must be text, json or dap)", c.Events)
	}
	switch c.Color {
	case "auto", "on", "off":
	default:
		return fmt.Errorf("unsupported color %q (must be auto, on or off)", c.Color)
	}
	if _, err := c.idleTimeout(); err != nil {
		return err
	}
	return nil
}

func (c *Config) idleTimeout() (time.Duration, error) {
	if c.IdleTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.IdleTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid idle_timeout %q: %w", c.IdleTimeout, err)
	}
	return d, nil
}

// StartOption 根据配置生成调试参数
func (c *Config) StartOption(programFile string) (*debugger.StartOption, error) {
	timeout, err := c.idleTimeout()
	if err != nil {
		return nil, err
	}
	breakpoints := make([]*debugger.Breakpoint, 0, len(c.Breakpoints))
	for _, location := range c.Breakpoints {
		bp, err := protocol.ParseLocation(location)
		if err != nil {
			return nil, err
		}
		breakpoints = append(breakpoints, bp)
	}
	return &debugger.StartOption{
		ProgramFile:     programFile,
		Entries:         c.Threads,
		BreakPoints:     breakpoints,
		SkipModules:     c.Skip,
		SkipFunctions:   c.SkipFunctions,
		CaseFold:        constants.CaseFoldType(c.CaseFold),
		StopOnEntry:     c.StopOnEntry,
		IgnoreFirstCall: c.IgnoreFirstCall,
		IdleTimeout:     timeout,
	}, nil
}
