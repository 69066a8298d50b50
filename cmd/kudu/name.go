package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/digigaia/kudu/chain"
	"github.com/urfave/cli/v2"
)

var commandName = &cli.Command{
	Name:  "name",
	Usage: "encode and decode account names",
	Subcommands: []*cli.Command{
		{
			Name:      "encode",
			Usage:     "encode a name string to its 64-bit value",
			ArgsUsage: "<name>",
			Flags:     []cli.Flag{jsonFlag},
			Action:    nameEncode,
		},
		{
			Name:      "decode",
			Usage:     "decode a 64-bit value (decimal or hex) to a name string",
			ArgsUsage: "<value>",
			Flags:     []cli.Flag{jsonFlag},
			Action:    nameDecode,
		},
	},
}

type outputName struct {
	Name    string `json:"name"`
	Value   uint64 `json:"value"`
	WireHex string `json:"wire_hex"`
}

func nameEncode(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("usage: kudu name encode <name>")
	}
	n, err := chain.NewName(ctx.Args().First())
	if err != nil {
		return err
	}
	return printName(ctx, n)
}

func nameDecode(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("usage: kudu name decode <value>")
	}
	arg := ctx.Args().First()
	v, err := strconv.ParseUint(arg, 0, 64)
	if err != nil {
		return fmt.Errorf("invalid name value %q: %w", arg, err)
	}
	return printName(ctx, chain.Name(v))
}

func printName(ctx *cli.Context, n chain.Name) error {
	var wire [8]byte
	for i := 0; i < 8; i++ {
		wire[i] = byte(uint64(n) >> (8 * i))
	}
	out := outputName{
		Name:    n.String(),
		Value:   uint64(n),
		WireHex: hex.EncodeToString(wire[:]),
	}
	if ctx.Bool(jsonFlag.Name) {
		blob, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(blob))
		return nil
	}
	fmt.Printf("Name:       %s\n", out.Name)
	fmt.Printf("Value:      %d\n", out.Value)
	fmt.Printf("Wire (hex): %s\n", out.WireHex)
	return nil
}
