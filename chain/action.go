package chain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/digigaia/kudu/bstream"
)

// ErrABIRequired is returned when action data should be decoded but no ABI
// source is available for the action's account.
var ErrABIRequired = errors.New("chain: no ABI available to decode action data")

// PermissionLevel names an authorizing actor and the permission it signs
// with. On the wire it is the two packed names, actor first.
type PermissionLevel struct {
	Actor      Name `json:"actor"`
	Permission Name `json:"permission"`
}

// NewPermissionLevel validates both names.
func NewPermissionLevel(actor, permission string) (PermissionLevel, error) {
	a, err := NewName(actor)
	if err != nil {
		return PermissionLevel{}, err
	}
	p, err := NewName(permission)
	if err != nil {
		return PermissionLevel{}, err
	}
	return PermissionLevel{Actor: a, Permission: p}, nil
}

func (p PermissionLevel) String() string {
	return fmt.Sprintf("%s@%s", p.Actor, p.Permission)
}

func (p PermissionLevel) Pack(s *bstream.ByteStream) {
	p.Actor.Pack(s)
	p.Permission.Pack(s)
}

func (p *PermissionLevel) Unpack(s *bstream.ByteStream) error {
	if err := p.Actor.Unpack(s); err != nil {
		return err
	}
	return p.Permission.Unpack(s)
}

// MatchesShape compares against other common representations of a
// permission level: another PermissionLevel, a {actor, permission} string
// map, or a two-element [actor, permission] sequence. Unrecognized shapes
// compare unequal.
func (p PermissionLevel) MatchesShape(v any) bool {
	switch other := v.(type) {
	case PermissionLevel:
		return p == other
	case *PermissionLevel:
		return other != nil && p == *other
	case map[string]any:
		actor, _ := other["actor"].(string)
		permission, _ := other["permission"].(string)
		return p.Actor.String() == actor && p.Permission.String() == permission
	case map[string]string:
		return p.Actor.String() == other["actor"] && p.Permission.String() == other["permission"]
	case [2]string:
		return p.Actor.String() == other[0] && p.Permission.String() == other[1]
	case []string:
		return len(other) == 2 && p.Actor.String() == other[0] && p.Permission.String() == other[1]
	default:
		return false
	}
}

// ActionDecoder resolves raw action data into named fields using whatever
// ABI source the caller wired in. The chain package itself never fetches
// ABIs.
type ActionDecoder interface {
	DecodeActionData(account, name Name, data []byte) (map[string]any, error)
}

// Action is a single contract call: the target account, the action name,
// the authorizations it carries and the opaque encoded payload.
type Action struct {
	Account       Name              `json:"account"`
	Name          Name              `json:"name"`
	Authorization []PermissionLevel `json:"authorization"`
	Data          Bytes             `json:"data"`
}

func (a *Action) Pack(s *bstream.ByteStream) {
	a.Account.Pack(s)
	a.Name.Pack(s)
	s.WriteVaruint32(uint32(len(a.Authorization)))
	for _, auth := range a.Authorization {
		auth.Pack(s)
	}
	a.Data.Pack(s)
}

func (a *Action) Unpack(s *bstream.ByteStream) error {
	if err := a.Account.Unpack(s); err != nil {
		return err
	}
	if err := a.Name.Unpack(s); err != nil {
		return err
	}
	n, err := s.ReadVaruint32()
	if err != nil {
		return err
	}
	a.Authorization = make([]PermissionLevel, n)
	for i := range a.Authorization {
		if err := a.Authorization[i].Unpack(s); err != nil {
			return err
		}
	}
	return a.Data.Unpack(s)
}

// DecodeData resolves the opaque payload into named fields. A nil decoder
// fails with ErrABIRequired.
func (a *Action) DecodeData(dec ActionDecoder) (map[string]any, error) {
	if dec == nil {
		return nil, fmt.Errorf("%w: account %s", ErrABIRequired, a.Account)
	}
	fields, err := dec.DecodeActionData(a.Account, a.Name, a.Data)
	if err != nil {
		return nil, fmt.Errorf("decoding data of action %s::%s: %w", a.Account, a.Name, err)
	}
	return fields, nil
}

// Decoded returns the dict projection of the action with the data field
// replaced by its decoded fields.
func (a *Action) Decoded(dec ActionDecoder) (map[string]any, error) {
	fields, err := a.DecodeData(dec)
	if err != nil {
		return nil, err
	}
	auths := make([]map[string]any, len(a.Authorization))
	for i, auth := range a.Authorization {
		auths[i] = map[string]any{
			"actor":      auth.Actor.String(),
			"permission": auth.Permission.String(),
		}
	}
	return map[string]any{
		"account":       a.Account.String(),
		"name":          a.Name.String(),
		"authorization": auths,
		"data":          fields,
	}, nil
}

// MatchesShape compares against other common representations of an action:
// another Action or a string-keyed map carrying account/name/authorization/
// data in encoded (hex string) form. A decoded (field map) payload cannot be
// verified without an ABI and compares unequal; use MatchesShapeDecoded for
// those. Unrecognized shapes compare unequal.
func (a *Action) MatchesShape(v any) bool {
	return a.matchesShape(v, nil)
}

// MatchesShapeDecoded is MatchesShape with decoded payloads compared field
// by field through dec.
func (a *Action) MatchesShapeDecoded(v any, dec ActionDecoder) bool {
	return a.matchesShape(v, dec)
}

func (a *Action) matchesShape(v any, dec ActionDecoder) bool {
	switch other := v.(type) {
	case Action:
		return a.equalAction(&other)
	case *Action:
		return other != nil && a.equalAction(other)
	case map[string]any:
		account, _ := other["account"].(string)
		name, _ := other["name"].(string)
		if account != a.Account.String() || name != a.Name.String() {
			return false
		}
		if auths, ok := other["authorization"].([]any); ok {
			if len(auths) != len(a.Authorization) {
				return false
			}
			for i, auth := range auths {
				if !a.Authorization[i].MatchesShape(auth) {
					return false
				}
			}
		}
		switch data := other["data"].(type) {
		case string:
			return data == a.Data.String()
		case nil:
			return true
		case map[string]any:
			fields, err := a.DecodeData(dec)
			if err != nil {
				return false
			}
			return equalDecodedFields(fields, data)
		default:
			return false
		}
	default:
		return false
	}
}

// equalDecodedFields compares two field maps through their canonical JSON
// form, so typed values from the decoder match their plain JSON equivalents.
func equalDecodedFields(a, b map[string]any) bool {
	x, err := json.Marshal(a)
	if err != nil {
		return false
	}
	y, err := json.Marshal(b)
	return err == nil && bytes.Equal(x, y)
}

func (a *Action) equalAction(other *Action) bool {
	if a.Account != other.Account || a.Name != other.Name {
		return false
	}
	if len(a.Authorization) != len(other.Authorization) {
		return false
	}
	for i := range a.Authorization {
		if a.Authorization[i] != other.Authorization[i] {
			return false
		}
	}
	return string(a.Data) == string(other.Data)
}
