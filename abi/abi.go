// Package abi parses Antelope contract ABI documents and uses them to
// translate action and table payloads between the chain's binary form and
// JSON-friendly Go values. The schema is resolved once at load time; decode
// and encode walk the resolved type graph without re-parsing.
package abi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set"

	"github.com/digigaia/kudu/chain"
)

const versionPrefix = "eosio::abi/1."

var (
	ErrInvalidABI  = errors.New("abi: invalid ABI document")
	ErrUnknownType = errors.New("abi: unknown type")
	ErrDecode      = errors.New("abi: decode error")
	ErrEncode      = errors.New("abi: encode error")
)

// TypeDef aliases an existing type under a new name.
type TypeDef struct {
	NewTypeName string `json:"new_type_name"`
	Type        string `json:"type"`
}

// Field is a struct member: a name and a type descriptor, where the
// descriptor may carry the "[]", "?" or "$" suffixes.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Struct declares an ordered field list, optionally extending a base
// struct whose fields are encoded first.
type Struct struct {
	Name   string  `json:"name"`
	Base   string  `json:"base"`
	Fields []Field `json:"fields"`
}

// Action maps an action name to the struct encoding its parameters.
type Action struct {
	Name              chain.Name `json:"name"`
	Type              string     `json:"type"`
	RicardianContract string     `json:"ricardian_contract"`
}

// Table describes a contract table and the struct of its rows.
type Table struct {
	Name      chain.Name `json:"name"`
	IndexType string     `json:"index_type"`
	KeyNames  []string   `json:"key_names"`
	KeyTypes  []string   `json:"key_types"`
	Type      string     `json:"type"`
}

// Variant is a closed sum type; the wire form is a varuint32 selector
// followed by the chosen alternative.
type Variant struct {
	Name  string   `json:"name"`
	Types []string `json:"types"`
}

// ActionResult declares the return type of an action.
type ActionResult struct {
	Name       chain.Name `json:"name"`
	ResultType string     `json:"result_type"`
}

// ABI is a parsed and validated contract schema. It is immutable after
// construction and safe for concurrent use.
type ABI struct {
	Version       string         `json:"version"`
	Types         []TypeDef      `json:"types"`
	Structs       []Struct       `json:"structs"`
	Actions       []Action       `json:"actions"`
	Tables        []Table        `json:"tables"`
	Variants      []Variant      `json:"variants,omitempty"`
	ActionResults []ActionResult `json:"action_results,omitempty"`

	typedefs      map[string]string
	structs       map[string]*Struct
	actionTypes   map[chain.Name]string
	tableTypes    map[chain.Name]string
	variants      map[string]*Variant
	actionResults map[chain.Name]string
}

// New parses an ABI JSON document and validates the type graph.
func New(data []byte) (*ABI, error) {
	a := new(ABI)
	if err := json.Unmarshal(data, a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidABI, err)
	}
	if err := a.resolve(); err != nil {
		return nil, err
	}
	return a, nil
}

// resolve indexes the declaration lists and validates the graph. It must be
// called once before any decode or encode.
func (a *ABI) resolve() error {
	if !strings.HasPrefix(a.Version, versionPrefix) {
		return fmt.Errorf("%w: unsupported version %q", ErrInvalidABI, a.Version)
	}

	a.typedefs = make(map[string]string, len(a.Types))
	for _, td := range a.Types {
		if _, dup := a.typedefs[td.NewTypeName]; dup {
			return fmt.Errorf("%w: duplicate type alias %q", ErrInvalidABI, td.NewTypeName)
		}
		a.typedefs[td.NewTypeName] = td.Type
	}
	a.structs = make(map[string]*Struct, len(a.Structs))
	for i := range a.Structs {
		st := &a.Structs[i]
		if _, dup := a.structs[st.Name]; dup {
			return fmt.Errorf("%w: duplicate struct %q", ErrInvalidABI, st.Name)
		}
		a.structs[st.Name] = st
	}
	a.variants = make(map[string]*Variant, len(a.Variants))
	for i := range a.Variants {
		v := &a.Variants[i]
		if _, dup := a.variants[v.Name]; dup {
			return fmt.Errorf("%w: duplicate variant %q", ErrInvalidABI, v.Name)
		}
		a.variants[v.Name] = v
	}
	a.actionTypes = make(map[chain.Name]string, len(a.Actions))
	for _, act := range a.Actions {
		if _, dup := a.actionTypes[act.Name]; dup {
			return fmt.Errorf("%w: duplicate action %q", ErrInvalidABI, act.Name)
		}
		a.actionTypes[act.Name] = act.Type
	}
	a.tableTypes = make(map[chain.Name]string, len(a.Tables))
	for _, tbl := range a.Tables {
		if _, dup := a.tableTypes[tbl.Name]; dup {
			return fmt.Errorf("%w: duplicate table %q", ErrInvalidABI, tbl.Name)
		}
		a.tableTypes[tbl.Name] = tbl.Type
	}
	a.actionResults = make(map[chain.Name]string, len(a.ActionResults))
	for _, res := range a.ActionResults {
		if _, dup := a.actionResults[res.Name]; dup {
			return fmt.Errorf("%w: duplicate action result %q", ErrInvalidABI, res.Name)
		}
		a.actionResults[res.Name] = res.ResultType
	}

	if err := a.checkTypedefCycles(); err != nil {
		return err
	}
	if err := a.checkBaseCycles(); err != nil {
		return err
	}
	return a.checkReferences()
}

func (a *ABI) checkTypedefCycles() error {
	for name := range a.typedefs {
		seen := mapset.NewThreadUnsafeSet()
		cur := name
		for {
			if seen.Contains(cur) {
				return fmt.Errorf("%w: circular type alias %q", ErrInvalidABI, name)
			}
			seen.Add(cur)
			next, ok := a.typedefs[cur]
			if !ok {
				break
			}
			cur = next
		}
	}
	return nil
}

func (a *ABI) checkBaseCycles() error {
	for name, st := range a.structs {
		seen := mapset.NewThreadUnsafeSet()
		cur := st
		for cur.Base != "" {
			if seen.Contains(cur.Name) {
				return fmt.Errorf("%w: circular struct base for %q", ErrInvalidABI, name)
			}
			seen.Add(cur.Name)
			base, ok := a.structs[a.resolveAlias(cur.Base)]
			if !ok {
				return fmt.Errorf("%w: struct %q has unknown base %q", ErrInvalidABI, cur.Name, cur.Base)
			}
			cur = base
		}
	}
	return nil
}

func (a *ABI) checkReferences() error {
	check := func(owner, typeName string) error {
		if !a.isResolvable(typeName) {
			return fmt.Errorf("%w: %q references unknown type %q", ErrInvalidABI, owner, typeName)
		}
		return nil
	}
	for _, td := range a.Types {
		if err := check("type alias "+td.NewTypeName, td.Type); err != nil {
			return err
		}
	}
	for _, st := range a.Structs {
		for _, f := range st.Fields {
			if err := check("struct "+st.Name, f.Type); err != nil {
				return err
			}
		}
	}
	for _, v := range a.Variants {
		for _, t := range v.Types {
			if err := check("variant "+v.Name, t); err != nil {
				return err
			}
		}
	}
	for _, act := range a.Actions {
		if err := check("action "+act.Name.String(), act.Type); err != nil {
			return err
		}
	}
	for _, tbl := range a.Tables {
		if err := check("table "+tbl.Name.String(), tbl.Type); err != nil {
			return err
		}
	}
	for _, res := range a.ActionResults {
		if err := check("action result "+res.Name.String(), res.ResultType); err != nil {
			return err
		}
	}
	return nil
}

// resolveAlias follows typedef links to the underlying type name. Cycles
// have been ruled out at load time.
func (a *ABI) resolveAlias(name string) string {
	for {
		next, ok := a.typedefs[name]
		if !ok {
			return name
		}
		name = next
	}
}

// fundamental strips array, optional and binary-extension suffixes down to
// the innermost type name.
func fundamental(name string) string {
	for {
		switch {
		case strings.HasSuffix(name, "$"):
			name = strings.TrimSuffix(name, "$")
		case strings.HasSuffix(name, "[]"):
			name = strings.TrimSuffix(name, "[]")
		case strings.HasSuffix(name, "?"):
			name = strings.TrimSuffix(name, "?")
		default:
			return name
		}
	}
}

func (a *ABI) isResolvable(name string) bool {
	// Alias targets may themselves carry suffixes, so strip and resolve
	// until a fixed point.
	base := fundamental(name)
	for {
		next := fundamental(a.resolveAlias(base))
		if next == base {
			break
		}
		base = next
	}
	if isBuiltin(base) {
		return true
	}
	if _, ok := a.structs[base]; ok {
		return true
	}
	_, ok := a.variants[base]
	return ok
}

// ActionType returns the struct name encoding the given action's
// parameters, or "" when the action is not declared.
func (a *ABI) ActionType(name chain.Name) string {
	return a.actionTypes[name]
}

// TableType returns the row struct name for a table, or "".
func (a *ABI) TableType(name chain.Name) string {
	return a.tableTypes[name]
}

// ActionResultType returns the declared result type of an action, or "".
func (a *ABI) ActionResultType(name chain.Name) string {
	return a.actionResults[name]
}

var builtinTypes = map[string]struct{}{
	"bool": {}, "int8": {}, "uint8": {}, "int16": {}, "uint16": {},
	"int32": {}, "uint32": {}, "int64": {}, "uint64": {},
	"int128": {}, "uint128": {}, "varint32": {}, "varuint32": {},
	"float32": {}, "float64": {}, "bytes": {}, "string": {},
	"time_point": {}, "time_point_sec": {}, "block_timestamp_type": {},
	"checksum160": {}, "checksum256": {}, "checksum512": {},
	"public_key": {}, "signature": {}, "name": {},
	"symbol": {}, "symbol_code": {}, "asset": {}, "extended_asset": {},
}

func isBuiltin(name string) bool {
	_, ok := builtinTypes[name]
	return ok
}
