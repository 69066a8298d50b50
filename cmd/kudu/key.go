package main

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/digigaia/kudu/crypto"
	"github.com/tyler-smith/go-bip39"
	"github.com/urfave/cli/v2"
)

var (
	curveFlag = &cli.StringFlag{
		Name:  "curve",
		Usage: "key curve, K1 or R1",
		Value: "K1",
	}
	mnemonicFlag = &cli.StringFlag{
		Name:  "mnemonic",
		Usage: "derive the key from a BIP-39 mnemonic instead of random entropy",
	}
	mnemonicPassFlag = &cli.StringFlag{
		Name:  "mnemonic-password",
		Usage: "optional BIP-39 passphrase used with --mnemonic",
	}
	labelFlag = &cli.StringFlag{
		Name:  "label",
		Usage: "store the key in the wallet under this label",
	}
	privateFlag = &cli.BoolFlag{
		Name:  "private",
		Usage: "include the private key in the output",
	}
)

var commandKey = &cli.Command{
	Name:  "key",
	Usage: "generate, inspect and store keys",
	Subcommands: []*cli.Command{
		{
			Name:   "generate",
			Usage:  "generate a new key pair",
			Flags:  []cli.Flag{curveFlag, mnemonicFlag, mnemonicPassFlag, labelFlag, walletPathFlag, jsonFlag},
			Action: keyGenerate,
		},
		{
			Name:      "inspect",
			Usage:     "print information about a key",
			ArgsUsage: "<private or public key>",
			Flags:     []cli.Flag{privateFlag, jsonFlag},
			Action:    keyInspect,
		},
		{
			Name:      "import",
			Usage:     "import a private key into the wallet",
			ArgsUsage: "<private key>",
			Flags:     []cli.Flag{labelFlag, walletPathFlag},
			Action:    keyImport,
		},
		{
			Name:   "list",
			Usage:  "list the public keys held in the wallet",
			Flags:  []cli.Flag{walletPathFlag},
			Action: keyList,
		},
	},
}

type outputGenerate struct {
	PublicKey        string `json:"public_key"`
	LegacyPublicKey  string `json:"legacy_public_key,omitempty"`
	PrivateKey       string `json:"private_key"`
	LegacyPrivateKey string `json:"legacy_private_key,omitempty"`
}

func parseCurve(s string) (crypto.CurveType, error) {
	switch strings.ToUpper(s) {
	case "K1":
		return crypto.K1, nil
	case "R1":
		return crypto.R1, nil
	default:
		return 0, fmt.Errorf("unknown curve %q, want K1 or R1", s)
	}
}

func keyGenerate(ctx *cli.Context) error {
	curve, err := parseCurve(ctx.String(curveFlag.Name))
	if err != nil {
		return err
	}
	var key *crypto.PrivateKey
	if mnemonic := ctx.String(mnemonicFlag.Name); mnemonic != "" {
		key, err = keyFromMnemonic(curve, mnemonic, ctx.String(mnemonicPassFlag.Name))
	} else {
		key, err = crypto.GeneratePrivateKey(curve)
	}
	if err != nil {
		return err
	}
	if label := ctx.String(labelFlag.Name); label != "" {
		w, err := openWallet(ctx, newLogger(ctx))
		if err != nil {
			return err
		}
		if _, err := w.ImportKey(label, key.ModernString()); err != nil {
			return err
		}
	}
	return printKey(ctx, key, true)
}

// keyFromMnemonic stretches a BIP-39 seed with HMAC-SHA512 until the
// result is a valid scalar for the requested curve.
func keyFromMnemonic(curve crypto.CurveType, mnemonic, passphrase string) (*crypto.PrivateKey, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}
	material := seed
	for i := 0; i < 128; i++ {
		mac := hmac.New(sha512.New, []byte("kudu seed"))
		mac.Write(material)
		material = mac.Sum(nil)
		key, err := crypto.PrivateKeyFromBytes(curve, material[:32])
		if err == nil {
			return key, nil
		}
	}
	return nil, fmt.Errorf("could not derive a valid %s key from mnemonic", curve)
}

func keyInspect(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("usage: kudu key inspect <key>")
	}
	arg := ctx.Args().First()
	if key, err := crypto.NewPrivateKey(arg); err == nil {
		return printKey(ctx, key, ctx.Bool(privateFlag.Name))
	}
	pub, err := crypto.NewPublicKey(arg)
	if err != nil {
		return fmt.Errorf("not a valid public or private key: %w", err)
	}
	return printPub(ctx, pub)
}

func keyImport(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("usage: kudu key import <private key>")
	}
	label := ctx.String(labelFlag.Name)
	if label == "" {
		return fmt.Errorf("--label is required")
	}
	w, err := openWallet(ctx, newLogger(ctx))
	if err != nil {
		return err
	}
	pub, err := w.ImportKey(label, ctx.Args().First())
	if err != nil {
		return err
	}
	fmt.Printf("Imported %s as %q\n", pub, label)
	return nil
}

func keyList(ctx *cli.Context) error {
	w, err := openWallet(ctx, newLogger(ctx))
	if err != nil {
		return err
	}
	for _, pub := range w.PublicKeys() {
		fmt.Println(pub)
	}
	return nil
}

func printKey(ctx *cli.Context, key *crypto.PrivateKey, withPrivate bool) error {
	pub, err := key.PublicKey()
	if err != nil {
		return err
	}
	out := outputGenerate{PublicKey: pub.ModernString()}
	if legacy, err := pub.LegacyString(); err == nil {
		out.LegacyPublicKey = legacy
	}
	if withPrivate {
		out.PrivateKey = key.ModernString()
		if legacy, err := key.LegacyString(); err == nil {
			out.LegacyPrivateKey = legacy
		}
	}
	if ctx.Bool(jsonFlag.Name) {
		blob, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(blob))
		return nil
	}
	fmt.Printf("Public key:  %s\n", out.PublicKey)
	if out.LegacyPublicKey != "" {
		fmt.Printf("Legacy form: %s\n", out.LegacyPublicKey)
	}
	if withPrivate {
		fmt.Printf("Private key: %s\n", out.PrivateKey)
		if out.LegacyPrivateKey != "" {
			fmt.Printf("Legacy form: %s\n", out.LegacyPrivateKey)
		}
	}
	return nil
}

func printPub(ctx *cli.Context, pub *crypto.PublicKey) error {
	out := outputGenerate{PublicKey: pub.ModernString()}
	if legacy, err := pub.LegacyString(); err == nil {
		out.LegacyPublicKey = legacy
	}
	if ctx.Bool(jsonFlag.Name) {
		blob, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(blob))
		return nil
	}
	fmt.Printf("Public key:  %s\n", out.PublicKey)
	if out.LegacyPublicKey != "" {
		fmt.Printf("Legacy form: %s\n", out.LegacyPublicKey)
	}
	return nil
}
