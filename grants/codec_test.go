package grants_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/social-auth/grants"
	"github.com/stretchr/testify/require"
)

// account carries more than a principal summary; only the summary may be stored.
type account struct {
	Name         string
	Roles        []string
	PasswordHash string
}

func (a *account) IdentitySubject() string { return a.Name }
func (a *account) IdentityRoles() []string { return a.Roles }

func TestAttributes_RoundTrip(t *testing.T) {
	issued := time.Date(2024, 5, 1, 10, 30, 0, 123000000, time.UTC)
	id := uuid.MustParse("0b0a4f1e-8f52-4bb5-9d0b-7f5b4b2d3c11")
	attrs := map[string]any{
		"text":    "hello",
		"flag":    true,
		"count":   int64(42),
		"ratio":   1.5,
		"whole":   float64(2),
		"issued":  issued,
		"request": id,
		"nested": map[string]any{
			"scopes": []any{"post.read", "user.read"},
			"depth":  map[string]any{"n": int64(-7)},
		},
		grants.AttrPrincipal: grants.PrincipalSummary{Subject: "alice", Roles: []string{"ROLE_USER"}},
	}

	blob, err := grants.EncodeAttributes(attrs)
	require.NoError(t, err)

	decoded, err := grants.DecodeAttributes(blob)
	require.NoError(t, err)
	require.Equal(t, attrs, decoded)
}

func TestAttributes_Normalisation(t *testing.T) {
	blob, err := grants.EncodeAttributes(map[string]any{
		"int":     7,
		"int32":   int32(8),
		"uint32":  uint32(9),
		"float32": float32(0.5),
		"number":  json.Number("10"),
		"strings": []string{"a", "b"},
		"labels":  map[string]string{"k": "v"},
		"local":   time.Date(2024, 1, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600)),
	})
	require.NoError(t, err)

	decoded, err := grants.DecodeAttributes(blob)
	require.NoError(t, err)
	require.Equal(t, int64(7), decoded["int"])
	require.Equal(t, int64(8), decoded["int32"])
	require.Equal(t, int64(9), decoded["uint32"])
	require.Equal(t, 0.5, decoded["float32"])
	require.Equal(t, int64(10), decoded["number"])
	require.Equal(t, []any{"a", "b"}, decoded["strings"])
	require.Equal(t, map[string]any{"k": "v"}, decoded["labels"])
	require.Equal(t, time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC), decoded["local"])
}

func TestAttributes_Empty(t *testing.T) {
	blob, err := grants.EncodeAttributes(nil)
	require.NoError(t, err)
	require.Empty(t, blob)

	decoded, err := grants.DecodeAttributes("")
	require.NoError(t, err)
	require.Nil(t, decoded)
}

func TestAttributes_PrincipalIsReducedToSummary(t *testing.T) {
	blob, err := grants.EncodeAttributes(map[string]any{
		grants.AttrPrincipal: &account{Name: "alice", Roles: []string{"ROLE_USER"}, PasswordHash: "$2a$10$secrethash"},
	})
	require.NoError(t, err)
	require.NotContains(t, blob, "secrethash")

	decoded, err := grants.DecodeAttributes(blob)
	require.NoError(t, err)
	require.Equal(t, grants.PrincipalSummary{Subject: "alice", Roles: []string{"ROLE_USER"}}, decoded[grants.AttrPrincipal])
}

func TestEncodeAttributes_Rejects(t *testing.T) {
	var nilAccount *account
	tests := []struct {
		name  string
		value any
	}{
		{"struct", struct{ Secret string }{"x"}},
		{"channel", make(chan int)},
		{"nested struct", map[string]any{"inner": []any{struct{}{}}}},
		{"nil", nil},
		{"nil principal", nilAccount},
		{"principal without subject", &account{}},
		{"not a number", math.NaN()},
		{"infinity", math.Inf(1)},
		{"bytes", []byte("raw")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := grants.EncodeAttributes(map[string]any{"value": tt.value})
			require.ErrorIs(t, err, grants.ErrSerialization)
		})
	}
}

func TestDecodeAttributes_Rejects(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{"not json", "not json"},
		{"top level string", `{"t":"string","v":"x"}`},
		{"unknown kind", `{"t":"map","v":{"x":{"t":"java.lang.Runtime","v":{}}}}`},
		{"unknown node field", `{"t":"map","v":{},"class":"x"}`},
		{"unknown principal field", `{"t":"map","v":{"p":{"t":"principal","v":{"sub":"a","password":"x"}}}}`},
		{"principal without subject", `{"t":"map","v":{"p":{"t":"principal","v":{"roles":["ROLE_USER"]}}}}`},
		{"number as string", `{"t":"map","v":{"n":{"t":"number","v":"12"}}}`},
		{"bad timestamp", `{"t":"map","v":{"ts":{"t":"timestamp","v":"yesterday"}}}`},
		{"bad id", `{"t":"map","v":{"id":{"t":"id","v":"not-a-uuid"}}}`},
		{"kind mismatch", `{"t":"map","v":{"b":{"t":"bool","v":"true"}}}`},
		{"trailing data", `{"t":"map","v":{}} {}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := grants.DecodeAttributes(tt.blob)
			require.ErrorIs(t, err, grants.ErrSerialization)

			var serr *grants.SerializationError
			require.ErrorAs(t, err, &serr)
			require.Equal(t, "decode", serr.Op)
		})
	}
}
