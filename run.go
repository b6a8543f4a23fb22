package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/fansqz/go-tracer/constants"
	"github.com/fansqz/go-tracer/debugger/host"
	"github.com/fansqz/go-tracer/debugger/trace_debugger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var runCmd = &cobra.Command{
	Use:   "run <program.toml>",
	Short: "Run a program under the debugger",
	Args:  cobra.ExactArgs(1),
	RunE:  runProgram,
}

func init() {
	addRunFlags(runCmd.Flags())
}

func addRunFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "TOML config file, flags override its values")
	flags.StringSliceP("break", "b", nil, "set a breakpoint at file:line")
	flags.StringSlice("break-fn", nil, "set a breakpoint at the first line of file:function")
	flags.StringSlice("skip", nil, "module name patterns to skip while stepping (* and ? wildcards)")
	flags.StringSlice("skip-fn", nil, "functions whose calls are not traced")
	flags.StringSlice("threads", nil, "entry function of each thread")
	flags.String("case-fold", string(constants.CaseFoldAuto), "file name case policy (auto|sensitive|lower)")
	flags.String("script", "", "read commands from a file instead of stdin")
	flags.String("events", string(constants.EventFormatText), "event output format (text|json|dap)")
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.String("record", "", "write every delivered trace event to a msgpack file")
	flags.Bool("stop-on-entry", false, "stop at the first event")
	flags.Bool("ignore-first-call", false, "ignore the call event of the entry function")
	flags.String("idle-timeout", "", "terminate a session paused longer than this duration")
	flags.String("log-level", "warn", "log level")
	flags.String("log-file", "", "log file, default is stderr")
}

func runProgram(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return err
	}
	if err = cfg.ApplyFlags(cmd.Flags()); err != nil {
		return err
	}
	if err = SetupLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		return err
	}
	defer CloseLogger()

	option, err := cfg.StartOption(args[0])
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	interactive := cfg.Script == "" && isTerminal(os.Stdin)
	if cfg.Script != "" {
		f, err := os.Open(cfg.Script)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	out := cmd.OutOrStdout()
	printer, err := NewPrinter(constants.EventFormat(cfg.Events), out, useColor(cfg.Color, isTerminal(os.Stdout)))
	if err != nil {
		return err
	}

	var opts []trace_debugger.Option
	var recorder *host.Recorder
	if cfg.Record != "" {
		recorder = host.NewRecorder()
		opts = append(opts, trace_debugger.WithRecorder(recorder))
	}
	debug := trace_debugger.NewTraceDebugger(opts...)
	logrus.Infof("[run] session %s, program %s", debug.SessionID(), args[0])

	console := NewConsole(debug, in, printer)
	if interactive && constants.EventFormat(cfg.Events) == constants.EventFormatText {
		console.WithPrompt(out)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runErr := console.Run(ctx, option)

	if recorder != nil {
		if err = writeRecord(cfg.Record, recorder); err != nil {
			return err
		}
	}
	return runErr
}

// writeRecord 保存事件记录
func writeRecord(path string, recorder *host.Recorder) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create record file: %w", err)
	}
	defer f.Close()
	return recorder.Encode(f)
}
