package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/vk/assetforge/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("assetforge", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
AssetForge - A concurrent game asset import engine.

Usage:
  assetforge -game <dir> [options] PATH [PATH...]

Arguments:
  PATH
    Asset paths to import, relative to the game's search paths. The asset
    kind is inferred from the extension: .vmf, .mdl, .vmt or .vtf.

Options:
`)
		flagSet.PrintDefaults()
	}

	gameDirFlag := flagSet.String("game", "", "Directory containing .hcl game definition files.")
	gameNameFlag := flagSet.String("game-name", "", "Which defined game to import against. Optional when only one is defined.")
	profileFlag := flagSet.String("profile", "default", "Import profile to apply.")
	workersFlag := flagSet.Int("workers", 0, "Number of concurrent import workers. 0 selects hardware parallelism.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	statusPortFlag := flagSet.Int("status-port", 0, "Port for the HTTP status server. 0 is disabled.")
	strictFlag := flagSet.Bool("strict", false, "Fail assets whose dependencies failed instead of importing them degraded.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if *gameDirFlag == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	if flagSet.NArg() == 0 {
		return nil, false, &ExitError{Code: 2, Message: "no asset paths given"}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		GameDir:    *gameDirFlag,
		GameName:   *gameNameFlag,
		Profile:    *profileFlag,
		Assets:     flagSet.Args(),
		LogFormat:  logFormat,
		LogLevel:   logLevel,
		StatusPort: *statusPortFlag,
		Workers:    *workersFlag,
		Strict:     *strictFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return config, false, nil
}
