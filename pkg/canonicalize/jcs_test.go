package canonicalize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJCS_SortsKeys(t *testing.T) {
	out, err := JCS(map[string]any{"b": 2, "a": 1, "c": map[string]any{"z": true, "y": nil}})
	require.NoError(t, err)
	require.Equal(t, `{"a":1,"b":2,"c":{"y":null,"z":true}}`, string(out))
}

func TestJCS_NoHTMLEscaping(t *testing.T) {
	out, err := JCS(map[string]string{"k": "<a&b>"})
	require.NoError(t, err)
	require.Equal(t, `{"k":"<a&b>"}`, string(out))
}

func TestJCS_StructTags(t *testing.T) {
	in := struct {
		Name   string  `json:"name"`
		Amount float64 `json:"amount"`
	}{Name: "mangrove", Amount: 1.5}
	out, err := JCS(in)
	require.NoError(t, err)
	require.Equal(t, `{"amount":1.5,"name":"mangrove"}`, string(out))
}

func TestJCS_RejectsNonFinite(t *testing.T) {
	_, err := JCS(map[string]float64{"x": math.NaN()})
	require.ErrorIs(t, err, ErrNonFinite)

	_, err = JCS(struct{ V []float64 }{V: []float64{1, math.Inf(1)}})
	require.ErrorIs(t, err, ErrNonFinite)
}

func TestCanonicalHash_StableAcrossKeyOrder(t *testing.T) {
	h1, err := CanonicalHash(map[string]int{"a": 1, "b": 2})
	require.NoError(t, err)
	h2, err := Transform([]byte(`{ "b": 2, "a": 1 }`))
	require.NoError(t, err)
	require.Equal(t, h1, HashBytes(h2))
	require.Len(t, h1, 64)
}

func TestHashBytes_KnownVector(t *testing.T) {
	require.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		HashBytes(nil))
}
