package grants

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Attribute and metadata maps are stored as JSON trees of tagged nodes. Only the kinds below
// are written, and decoding anything else fails.
type valueKind string

const (
	kindString    valueKind = "string"
	kindBool      valueKind = "bool"
	kindNumber    valueKind = "number"
	kindTimestamp valueKind = "timestamp"
	kindID        valueKind = "id"
	kindMap       valueKind = "map"
	kindList      valueKind = "list"
	kindPrincipal valueKind = "principal"
)

type node struct {
	Kind  valueKind       `json:"t"`
	Value json.RawMessage `json:"v"`
}

// Identity is implemented by anything that can stand for an authenticated principal.
// Only the subject and roles of an Identity are ever stored.
type Identity interface {
	IdentitySubject() string
	IdentityRoles() []string
}

// PrincipalSummary is the stored form of a principal.
type PrincipalSummary struct {
	Subject string   `json:"sub"`
	Roles   []string `json:"roles,omitempty"`
}

func (p PrincipalSummary) IdentitySubject() string { return p.Subject }
func (p PrincipalSummary) IdentityRoles() []string { return p.Roles }

// EncodeAttributes encodes a map of attributes or token metadata. Supported values are
// strings, bools, integers, floats, time.Time, uuid.UUID, map[string]any, map[string]string,
// []any, []string and Identity. An empty map encodes to the empty string.
//
// Decoding returns int64 or float64 for numbers, []any for lists, map[string]any for maps and
// PrincipalSummary for identities.
func EncodeAttributes(attrs map[string]any) (string, error) {
	if len(attrs) == 0 {
		return "", nil
	}
	n, err := encodeValue(attrs)
	if err != nil {
		return "", serializationError("encode", err)
	}
	b, err := json.Marshal(n)
	if err != nil {
		return "", serializationError("encode", err)
	}
	return string(b), nil
}

// DecodeAttributes is the inverse of EncodeAttributes. The empty string decodes to a nil map.
func DecodeAttributes(blob string) (map[string]any, error) {
	if blob == "" {
		return nil, nil
	}
	var n node
	if err := strictUnmarshal([]byte(blob), &n); err != nil {
		return nil, serializationError("decode", err)
	}
	if n.Kind != kindMap {
		return nil, serializationError("decode", fmt.Errorf("top level value is %q, want %q", n.Kind, kindMap))
	}
	v, err := decodeNode(n)
	if err != nil {
		return nil, serializationError("decode", err)
	}
	return v.(map[string]any), nil
}

func encodeValue(v any) (node, error) {
	switch x := v.(type) {
	case string:
		return rawNode(kindString, x)
	case bool:
		return rawNode(kindBool, x)
	case int:
		return numberNode(strconv.FormatInt(int64(x), 10)), nil
	case int32:
		return numberNode(strconv.FormatInt(int64(x), 10)), nil
	case int64:
		return numberNode(strconv.FormatInt(x, 10)), nil
	case uint32:
		return numberNode(strconv.FormatUint(uint64(x), 10)), nil
	case float32:
		return floatNode(float64(x))
	case float64:
		return floatNode(x)
	case json.Number:
		return encodeJSONNumber(x)
	case time.Time:
		return rawNode(kindTimestamp, x.UTC().Format(time.RFC3339Nano))
	case uuid.UUID:
		return rawNode(kindID, x.String())
	case map[string]any:
		return encodeMap(x)
	case map[string]string:
		m := make(map[string]any, len(x))
		for k, s := range x {
			m[k] = s
		}
		return encodeMap(m)
	case []any:
		return encodeList(x)
	case []string:
		l := make([]any, 0, len(x))
		for _, s := range x {
			l = append(l, s)
		}
		return encodeList(l)
	case Identity:
		if isNilPointer(x) {
			return node{}, fmt.Errorf("nil principal %T", x)
		}
		summary := PrincipalSummary{Subject: x.IdentitySubject(), Roles: x.IdentityRoles()}
		if summary.Subject == "" {
			return node{}, fmt.Errorf("principal %T has no subject", x)
		}
		return rawNode(kindPrincipal, summary)
	default:
		return node{}, fmt.Errorf("unsupported attribute value of type %T", v)
	}
}

func encodeMap(m map[string]any) (node, error) {
	nodes := make(map[string]node, len(m))
	for k, v := range m {
		n, err := encodeValue(v)
		if err != nil {
			return node{}, fmt.Errorf("%s: %w", k, err)
		}
		nodes[k] = n
	}
	return rawNode(kindMap, nodes)
}

func encodeList(l []any) (node, error) {
	nodes := make([]node, 0, len(l))
	for i, v := range l {
		n, err := encodeValue(v)
		if err != nil {
			return node{}, fmt.Errorf("[%d]: %w", i, err)
		}
		nodes = append(nodes, n)
	}
	return rawNode(kindList, nodes)
}

func rawNode(kind valueKind, v any) (node, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return node{}, err
	}
	return node{Kind: kind, Value: b}, nil
}

func numberNode(literal string) node {
	return node{Kind: kindNumber, Value: json.RawMessage(literal)}
}

// floatNode always writes a fraction or exponent so the value decodes back to a float64.
func floatNode(f float64) (node, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return node{}, fmt.Errorf("number %v cannot be stored", f)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !isFloatLiteral(s) {
		s += ".0"
	}
	return numberNode(s), nil
}

func encodeJSONNumber(n json.Number) (node, error) {
	if isFloatLiteral(n.String()) {
		f, err := n.Float64()
		if err != nil {
			return node{}, err
		}
		return floatNode(f)
	}
	i, err := n.Int64()
	if err != nil {
		return node{}, err
	}
	return numberNode(strconv.FormatInt(i, 10)), nil
}

func decodeNode(n node) (any, error) {
	switch n.Kind {
	case kindString:
		var s string
		err := strictUnmarshal(n.Value, &s)
		return s, err
	case kindBool:
		var b bool
		err := strictUnmarshal(n.Value, &b)
		return b, err
	case kindNumber:
		return decodeNumber(n.Value)
	case kindTimestamp:
		var s string
		if err := strictUnmarshal(n.Value, &s); err != nil {
			return nil, err
		}
		return time.Parse(time.RFC3339Nano, s)
	case kindID:
		var s string
		if err := strictUnmarshal(n.Value, &s); err != nil {
			return nil, err
		}
		return uuid.Parse(s)
	case kindMap:
		var nodes map[string]node
		if err := strictUnmarshal(n.Value, &nodes); err != nil {
			return nil, err
		}
		m := make(map[string]any, len(nodes))
		for k, child := range nodes {
			v, err := decodeNode(child)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			m[k] = v
		}
		return m, nil
	case kindList:
		var nodes []node
		if err := strictUnmarshal(n.Value, &nodes); err != nil {
			return nil, err
		}
		l := make([]any, 0, len(nodes))
		for i, child := range nodes {
			v, err := decodeNode(child)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			l = append(l, v)
		}
		return l, nil
	case kindPrincipal:
		var p PrincipalSummary
		if err := strictUnmarshal(n.Value, &p); err != nil {
			return nil, err
		}
		if p.Subject == "" {
			return nil, fmt.Errorf("principal has no subject")
		}
		return p, nil
	default:
		return nil, fmt.Errorf("value kind %q is not allowed", n.Kind)
	}
}

func decodeNumber(raw json.RawMessage) (any, error) {
	var num json.Number
	if err := strictUnmarshal(raw, &num); err != nil {
		return nil, err
	}
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte(`"`)) {
		return nil, fmt.Errorf("number stored as string %s", raw)
	}
	if isFloatLiteral(num.String()) {
		return num.Float64()
	}
	return num.Int64()
}

func isFloatLiteral(s string) bool {
	return strings.ContainsAny(s, ".eE")
}

func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after value")
	}
	return nil
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}
