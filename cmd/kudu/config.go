package main

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"unicode"

	"github.com/digigaia/kudu/client"
	"github.com/digigaia/kudu/wallet"
	"github.com/naoina/toml"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const defaultNodeURL = "http://127.0.0.1:8888"

type kuduConfig struct {
	NodeURL    string
	WalletPath string
}

// tomlSettings ensures that TOML keys use the same names as Go struct fields
// and that unknown keys are reported instead of silently dropped.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		if len(field) > 0 && unicode.IsUpper(rune(field[0])) {
			return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
		}
		return nil
	},
}

func defaultConfig() kuduConfig {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return kuduConfig{
		NodeURL:    defaultNodeURL,
		WalletPath: filepath.Join(home, ".kudu", "wallet.json"),
	}
}

func loadConfig(ctx *cli.Context) (kuduConfig, error) {
	cfg := defaultConfig()
	if path := ctx.String(configFileFlag.Name); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		if err := tomlSettings.NewDecoder(f).Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	// Command line flags override the file.
	if url := ctx.String(nodeURLFlag.Name); url != "" {
		cfg.NodeURL = url
	}
	if path := ctx.String(walletPathFlag.Name); path != "" {
		cfg.WalletPath = path
	}
	return cfg, nil
}

func newClient(ctx *cli.Context, log *zap.Logger) (*client.Client, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	return client.New(cfg.NodeURL, client.WithLogger(log)), nil
}

func openWallet(ctx *cli.Context, log *zap.Logger) (*wallet.Wallet, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	return wallet.Open(cfg.WalletPath, wallet.WithLogger(log))
}
