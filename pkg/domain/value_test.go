package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_EqualIsExact(t *testing.T) {
	tests := []struct {
		name string
		a, b domain.Value
		want bool
	}{
		{"same string", domain.String("a"), domain.String("a"), true},
		{"different string", domain.String("a"), domain.String("b"), false},
		{"string vs number", domain.String("1"), domain.Number(1), false},
		{"bool vs number", domain.Bool(true), domain.Number(1), false},
		{"null vs null", domain.Null(), domain.Null(), true},
		{"null vs empty string", domain.Null(), domain.String(""), false},
		{"numbers", domain.Number(2.5), domain.Number(2.5), true},
		{"lists", domain.List(domain.String("a"), domain.Number(1)), domain.List(domain.String("a"), domain.Number(1)), true},
		{"list order matters", domain.List(domain.String("a"), domain.String("b")), domain.List(domain.String("b"), domain.String("a")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
			assert.Equal(t, tt.want, tt.b.Equal(tt.a))
		})
	}
}

func TestValue_JSONRoundTripKeepsKind(t *testing.T) {
	var got map[string]domain.Value
	err := json.Unmarshal([]byte(`{"s":"x","n":3,"b":false,"z":null,"l":["a",2]}`), &got)
	require.NoError(t, err)

	assert.Equal(t, domain.KindString, got["s"].Kind())
	assert.Equal(t, domain.KindNumber, got["n"].Kind())
	assert.Equal(t, domain.KindBool, got["b"].Kind())
	assert.True(t, got["z"].IsNull())
	assert.True(t, got["l"].Equal(domain.List(domain.String("a"), domain.Number(2))))

	out, err := json.Marshal(got["l"])
	require.NoError(t, err)
	assert.JSONEq(t, `["a",2]`, string(out))
}

func TestFromAny_RejectsMaps(t *testing.T) {
	_, err := domain.FromAny(map[string]any{"a": 1})
	assert.Error(t, err)

	v, err := domain.FromAny(int64(7))
	require.NoError(t, err)
	assert.True(t, v.Equal(domain.Number(7)))
}
