// GuidedCook walks a cook through one recipe: ingredient checklist, step
// by step instructions with timers, then rating, photo and saving.
//
// Usage:
//
//	guidedcook cook <recipe-id> [--api URL] [--token T] [--user U]
//	guidedcook serve [--listen :8080]
package main

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/guidedcook/internal/config"
	"github.com/hammamikhairi/guidedcook/internal/logger"
)

type rootFlags struct {
	configPath string
	logLevel   string
	logFile    string
	apiURL     string
	token      string
	userID     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "guidedcook",
		Short:         "Cook a recipe step by step",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "YAML config file")
	pf.StringVar(&flags.logLevel, "log-level", "", "off, normal or verbose")
	pf.StringVar(&flags.logFile, "log-file", "", "file to write logs to (\"stderr\" logs to console)")
	pf.StringVar(&flags.apiURL, "api", "", "recipe backend base URL")
	pf.StringVar(&flags.token, "token", "", "bearer token for the backend")
	pf.StringVar(&flags.userID, "user", "", "current user id")

	root.AddCommand(newCookCmd(flags), newServeCmd(flags))
	return root
}

// load reads the config and lets explicit flags win.
func (f *rootFlags) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	set := cmd.Flags().Changed
	if set("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if set("log-file") {
		cfg.LogFile = f.logFile
	}
	if set("api") {
		cfg.APIBaseURL = f.apiURL
	}
	if set("token") {
		cfg.Token = f.token
	}
	if set("user") {
		cfg.UserID = f.userID
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openLog directs logs to a file so the terminal UI stays clean. The
// returned close func is never nil.
func openLog(cfg *config.Config) (*logger.Logger, func()) {
	var out io.Writer = os.Stderr
	closeFn := func() {}

	if cfg.LogFile != "" && cfg.LogFile != "stderr" {
		if dir := filepath.Dir(cfg.LogFile); dir != "" && dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", cfg.LogFile, err)
		} else {
			out = f
			closeFn = func() { f.Close() }
		}
	}

	// Third-party libraries log through the standard logger.
	stdlog.SetOutput(out)
	stdlog.SetFlags(stdlog.Ltime)

	return logger.New(cfg.Level(), out), closeFn
}
