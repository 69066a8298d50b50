// Package flags holds shared helpers for kudu command line tools.
package flags

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// NewApp creates a cli app with sane defaults and version metadata.
func NewApp(gitCommit, gitDate, usage string) *cli.App {
	app := cli.NewApp()
	app.EnableBashCompletion = true
	app.Version = version(gitCommit, gitDate)
	app.Usage = usage
	app.Copyright = "Copyright 2023-2026 The kudu Authors"
	return app
}

func version(gitCommit, gitDate string) string {
	v := "1.0.0"
	if len(gitCommit) >= 8 {
		v += "-" + gitCommit[:8]
	}
	if gitDate != "" {
		v += "-" + gitDate
	}
	return v
}

// Fatalf formats a message to stderr and exits.
func Fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Fatal: "+format+"\n", args...)
	os.Exit(1)
}
