// kudu is a command line companion for Antelope chains: name and ABI
// codecs, key management and transaction signing.
package main

import (
	"fmt"
	"os"

	"github.com/digigaia/kudu/internal/flags"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// Git SHA1 commit hash of the release (set via linker flags)
var gitCommit = ""
var gitDate = ""

var app *cli.App

func init() {
	app = flags.NewApp(gitCommit, gitDate, "an Antelope serialization and signing toolkit")
	app.Flags = []cli.Flag{
		configFileFlag,
		nodeURLFlag,
		walletPathFlag,
		verboseFlag,
	}
	app.Commands = []*cli.Command{
		commandName,
		commandKey,
		commandABI,
		commandTx,
	}
}

// Commonly used command line flags.
var (
	configFileFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "TOML configuration file",
		Category: flags.MiscCategory,
	}
	nodeURLFlag = &cli.StringFlag{
		Name:     "node",
		Usage:    "HTTP URL of the chain API node",
		Category: flags.NodeCategory,
	}
	walletPathFlag = &cli.StringFlag{
		Name:     "wallet",
		Usage:    "path of the wallet file",
		Category: flags.WalletCategory,
	}
	verboseFlag = &cli.BoolFlag{
		Name:     "verbose",
		Usage:    "enable debug logging",
		Category: flags.LoggingCategory,
	}
	jsonFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "output JSON instead of human-readable format",
	}
)

func newLogger(ctx *cli.Context) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if ctx.Bool(verboseFlag.Name) {
		cfg = zap.NewDevelopmentConfig()
	}
	log, err := cfg.Build()
	if err != nil {
		flags.Fatalf("failed to set up logging: %v", err)
	}
	return log
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
