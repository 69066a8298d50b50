package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/digigaia/kudu/abi"
	"github.com/digigaia/kudu/chain"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
)

var (
	abiFileFlag = &cli.StringFlag{
		Name:  "file",
		Usage: "read the ABI from a JSON file instead of the node",
	}
	accountFlag = &cli.StringFlag{
		Name:  "account",
		Usage: "contract account whose ABI to use",
	}
	typeFlag = &cli.StringFlag{
		Name:  "type",
		Usage: "ABI type name (defaults to the action's type when --action is set)",
	}
	actionNameFlag = &cli.StringFlag{
		Name:  "action",
		Usage: "action name, resolved to its type through the ABI",
	}
)

var commandABI = &cli.Command{
	Name:  "abi",
	Usage: "decode, encode and inspect contract ABIs",
	Subcommands: []*cli.Command{
		{
			Name:      "decode",
			Usage:     "decode hex action or table data to JSON",
			ArgsUsage: "<hex data>",
			Flags:     []cli.Flag{abiFileFlag, accountFlag, typeFlag, actionNameFlag, nodeURLFlag, configFileFlag},
			Action:    abiDecode,
		},
		{
			Name:      "encode",
			Usage:     "encode a JSON document to hex binary data",
			ArgsUsage: "<json>",
			Flags:     []cli.Flag{abiFileFlag, accountFlag, typeFlag, actionNameFlag, nodeURLFlag, configFileFlag},
			Action:    abiEncode,
		},
		{
			Name:   "inspect",
			Usage:  "print the structs, actions and tables an ABI declares",
			Flags:  []cli.Flag{abiFileFlag, accountFlag, nodeURLFlag, configFileFlag},
			Action: abiInspect,
		},
	},
}

func loadABI(ctx *cli.Context) (*abi.ABI, error) {
	if path := ctx.String(abiFileFlag.Name); path != "" {
		doc, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return abi.New(doc)
	}
	account := ctx.String(accountFlag.Name)
	if account == "" {
		return nil, fmt.Errorf("either --file or --account is required")
	}
	name, err := chain.NewName(account)
	if err != nil {
		return nil, err
	}
	c, err := newClient(ctx, newLogger(ctx))
	if err != nil {
		return nil, err
	}
	doc, err := c.GetRawABIDocument(ctx.Context, name)
	if err != nil {
		return nil, err
	}
	return abi.New(doc)
}

func resolveType(ctx *cli.Context, a *abi.ABI) (string, error) {
	if t := ctx.String(typeFlag.Name); t != "" {
		return t, nil
	}
	if action := ctx.String(actionNameFlag.Name); action != "" {
		name, err := chain.NewName(action)
		if err != nil {
			return "", err
		}
		t := a.ActionType(name)
		if t == "" {
			return "", fmt.Errorf("ABI declares no action %q", action)
		}
		return t, nil
	}
	return "", fmt.Errorf("either --type or --action is required")
}

func abiDecode(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("usage: kudu abi decode <hex data>")
	}
	a, err := loadABI(ctx)
	if err != nil {
		return err
	}
	typeName, err := resolveType(ctx, a)
	if err != nil {
		return err
	}
	data, err := hex.DecodeString(ctx.Args().First())
	if err != nil {
		return fmt.Errorf("invalid hex data: %w", err)
	}
	v, err := a.Decode(typeName, data)
	if err != nil {
		return err
	}
	blob, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(blob))
	return nil
}

func abiEncode(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("usage: kudu abi encode <json>")
	}
	a, err := loadABI(ctx)
	if err != nil {
		return err
	}
	typeName, err := resolveType(ctx, a)
	if err != nil {
		return err
	}
	data, err := a.EncodeJSON(typeName, []byte(ctx.Args().First()))
	if err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(data))
	return nil
}

func abiInspect(ctx *cli.Context) error {
	a, err := loadABI(ctx)
	if err != nil {
		return err
	}

	structs := tablewriter.NewWriter(os.Stdout)
	structs.SetHeader([]string{"Struct", "Base", "Fields"})
	for _, st := range a.Structs {
		fields := make([]string, 0, len(st.Fields))
		for _, f := range st.Fields {
			fields = append(fields, f.Name+":"+f.Type)
		}
		structs.Append([]string{st.Name, st.Base, strings.Join(fields, " ")})
	}
	structs.Render()

	actions := tablewriter.NewWriter(os.Stdout)
	actions.SetHeader([]string{"Action", "Type"})
	for _, act := range a.Actions {
		actions.Append([]string{act.Name.String(), act.Type})
	}
	actions.Render()

	tables := tablewriter.NewWriter(os.Stdout)
	tables.SetHeader([]string{"Table", "Type", "Index"})
	for _, tb := range a.Tables {
		tables.Append([]string{tb.Name.String(), tb.Type, tb.IndexType})
	}
	tables.Render()
	return nil
}
