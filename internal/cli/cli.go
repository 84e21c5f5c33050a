package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ExitError carries the process exit code for a failed run.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return e.Message
}

// Config is the parsed command line.
type Config struct {
	ScenarioPath string
	LogLevel     string
	LogFormat    string
	Vars         map[string]string // -var name=value, last one wins
	Dump         bool              // print every cell's time after the summary
}

// varFlag collects repeated -var name=value flags.
type varFlag map[string]string

func (v varFlag) String() string {
	parts := make([]string, 0, len(v))
	for k, val := range v {
		parts = append(parts, k+"="+val)
	}

	return strings.Join(parts, ",")
}

func (v varFlag) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return fmt.Errorf("invalid -var %q: want name=value", s)
	}
	v[name] = value

	return nil
}

// Parse processes command-line arguments. It returns the Config, true when
// the program should exit cleanly (help or no scenario), or an *ExitError.
func Parse(args []string, output io.Writer) (*Config, bool, error) {
	flagSet := flag.NewFlagSet("fastmarch", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
fastmarch - arrival times of a front moving through a speed field.

Usage:
  fastmarch [options] [SCENARIO_PATH]

Arguments:
  SCENARIO_PATH
    Path to an .hcl scenario file.

Options:
`)
		flagSet.PrintDefaults()
	}

	vars := varFlag{}
	scenarioFlag := flagSet.String("scenario", "", "Path to the scenario file.")
	sFlag := flagSet.String("s", "", "Path to the scenario file (shorthand).")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	dumpFlag := flagSet.Bool("dump", false, "Print the arrival time of every cell.")
	flagSet.Var(vars, "var", "Set a scenario variable, name=value. May be repeated.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	path := ""
	switch {
	case *scenarioFlag != "":
		path = *scenarioFlag
	case *sFlag != "":
		path = *sFlag
	case flagSet.NArg() > 0:
		path = flagSet.Arg(0)
	}
	if path == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	return &Config{
		ScenarioPath: path,
		LogLevel:     logLevel,
		LogFormat:    logFormat,
		Vars:         vars,
		Dump:         *dumpFlag,
	}, false, nil
}

// NewLogger builds a logger writing to w. Unknown levels fall back to info,
// unknown formats to text.
func NewLogger(levelStr, formatStr string, w io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}
