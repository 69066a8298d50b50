package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/digigaia/kudu/chain"
	"github.com/urfave/cli/v2"
)

var (
	txFileFlag = &cli.StringFlag{
		Name:  "file",
		Usage: "read the transaction JSON from a file instead of the argument",
	}
	chainIDFlag = &cli.StringFlag{
		Name:  "chain-id",
		Usage: "hex chain id to sign for (fetched from the node when omitted)",
	}
	signerFlag = &cli.StringSliceFlag{
		Name:  "sign-with",
		Usage: "wallet label or public key to sign with (repeatable)",
	}
	expireFlag = &cli.DurationFlag{
		Name:  "expire-in",
		Usage: "transaction lifetime when filling the header from the node",
		Value: 30 * time.Second,
	}
	compressFlag = &cli.BoolFlag{
		Name:  "zlib",
		Usage: "zlib-compress the packed transaction",
	}
	broadcastFlag = &cli.BoolFlag{
		Name:  "broadcast",
		Usage: "submit the packed transaction to the node",
	}
)

var commandTx = &cli.Command{
	Name:  "tx",
	Usage: "sign, pack and submit transactions",
	Subcommands: []*cli.Command{
		{
			Name:      "sign",
			Usage:     "sign a transaction and print the packed envelope",
			ArgsUsage: "[<transaction json>]",
			Flags: []cli.Flag{
				txFileFlag, chainIDFlag, signerFlag, expireFlag,
				compressFlag, broadcastFlag,
				nodeURLFlag, walletPathFlag, configFileFlag,
			},
			Action: txSign,
		},
		{
			Name:      "unpack",
			Usage:     "decode hex transaction wire bytes back to JSON",
			ArgsUsage: "<hex transaction>",
			Action:    txUnpack,
		},
		{
			Name:      "digest",
			Usage:     "print the signing digest of a transaction",
			ArgsUsage: "[<transaction json>]",
			Flags:     []cli.Flag{txFileFlag, chainIDFlag, nodeURLFlag, configFileFlag},
			Action:    txDigest,
		},
	},
}

func readTransaction(ctx *cli.Context) (*chain.Transaction, error) {
	var doc []byte
	if path := ctx.String(txFileFlag.Name); path != "" {
		var err error
		doc, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	} else if ctx.NArg() == 1 {
		doc = []byte(ctx.Args().First())
	} else {
		return nil, fmt.Errorf("pass the transaction JSON as an argument or with --file")
	}
	return chain.NewTransactionFromJSON(doc)
}

// resolveChainID returns the chain id from the flag or the node. When the
// flag is absent the transaction header is also filled in from chain state.
func resolveChainID(ctx *cli.Context, tx *chain.Transaction) (chain.Checksum256, error) {
	if s := ctx.String(chainIDFlag.Name); s != "" {
		return chain.NewChecksum256(s)
	}
	c, err := newClient(ctx, newLogger(ctx))
	if err != nil {
		return chain.Checksum256{}, err
	}
	return c.FillTransactionHeader(ctx.Context, tx, ctx.Duration(expireFlag.Name))
}

func txSign(ctx *cli.Context) error {
	tx, err := readTransaction(ctx)
	if err != nil {
		return err
	}
	chainID, err := resolveChainID(ctx, tx)
	if err != nil {
		return err
	}
	signers := ctx.StringSlice(signerFlag.Name)
	if len(signers) == 0 {
		return fmt.Errorf("at least one --sign-with is required")
	}
	w, err := openWallet(ctx, newLogger(ctx))
	if err != nil {
		return err
	}
	signed := &chain.SignedTransaction{Transaction: *tx}
	for _, signer := range signers {
		key, err := w.PrivateKey(signer)
		if err != nil {
			key, err = w.PrivateKeyFor(signer)
		}
		if err != nil {
			return fmt.Errorf("signer %q: %w", signer, err)
		}
		if _, err := signed.Sign(key, chainID); err != nil {
			return err
		}
	}
	compression := chain.CompressionNone
	if ctx.Bool(compressFlag.Name) {
		compression = chain.CompressionZlib
	}
	packed, err := signed.Pack(compression)
	if err != nil {
		return err
	}
	if ctx.Bool(broadcastFlag.Name) {
		c, err := newClient(ctx, newLogger(ctx))
		if err != nil {
			return err
		}
		resp, err := c.SendTransaction(ctx.Context, packed)
		if err != nil {
			return err
		}
		fmt.Println(string(resp))
		return nil
	}
	blob, err := json.MarshalIndent(packed, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(blob))
	return nil
}

func txUnpack(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("usage: kudu tx unpack <hex transaction>")
	}
	data, err := hex.DecodeString(ctx.Args().First())
	if err != nil {
		return fmt.Errorf("invalid hex data: %w", err)
	}
	tx, err := chain.DecodeTransaction(data)
	if err != nil {
		return err
	}
	blob, err := json.MarshalIndent(tx, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(blob))
	return nil
}

func txDigest(ctx *cli.Context) error {
	tx, err := readTransaction(ctx)
	if err != nil {
		return err
	}
	chainID, err := resolveChainID(ctx, tx)
	if err != nil {
		return err
	}
	fmt.Println(tx.SigningDigest(chainID).String())
	return nil
}
