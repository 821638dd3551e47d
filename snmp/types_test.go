package snmp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOID(t *testing.T) {
	tests := []struct {
		input string
		want  OID
	}{
		{"1.3.6.1.2.1", OID{1, 3, 6, 1, 2, 1}},
		{".1.3.6.1.2.1", OID{1, 3, 6, 1, 2, 1}},
		{"0.0", OID{0, 0}},
		{".2.999.1", OID{2, 999, 1}},
		{"1", OID{1}},
	}

	for _, tc := range tests {
		oid, err := ParseOID(tc.input)
		require.NoError(t, err, "parsing %q", tc.input)
		assert.Equal(t, tc.want, oid)
	}
}

func TestParseOIDRejects(t *testing.T) {
	for _, input := range []string{
		"",
		".",
		"iso.3.6.1.2.1",
		"1.3.six.1",
		"1.-3.6",
		"1..3",
	} {
		_, err := ParseOID(input)
		assert.ErrorIs(t, err, ErrInvalidOID, "input %q", input)
	}
}

func TestOIDString(t *testing.T) {
	assert.Equal(t, "1.3.6.1", OID{1, 3, 6, 1}.String())
	assert.Equal(t, "", OID{}.String())

	// Leading dot is syntax only; it never survives a parse.
	oid := MustParseOID(".1.3.6.1")
	assert.Equal(t, "1.3.6.1", oid.String())
}

func TestOIDCompare(t *testing.T) {
	a := OID{1, 3, 6, 1}
	b := OID{1, 3, 6, 2}
	c := OID{1, 3, 6, 1, 0}

	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(OID{1, 3, 6, 1}))
	assert.Equal(t, -1, a.Compare(c), "prefix orders before its descendants")
	assert.Equal(t, 1, c.Compare(a))
}

func TestOIDHasPrefix(t *testing.T) {
	root := OID{1, 3, 6, 1, 2, 1, 1}

	assert.True(t, OID{1, 3, 6, 1, 2, 1, 1, 1, 0}.HasPrefix(root))
	assert.True(t, root.HasPrefix(root))
	assert.False(t, OID{1, 3, 6, 1, 2, 1, 2}.HasPrefix(root))
	assert.False(t, OID{1, 3, 6}.HasPrefix(root))

	// Prefix relation agrees with lexicographic order.
	descendant := OID{1, 3, 6, 1, 2, 1, 1, 5, 0}
	assert.True(t, descendant.HasPrefix(root))
	assert.Equal(t, -1, root.Compare(descendant))
}

func TestOIDCopyIsIndependent(t *testing.T) {
	orig := OID{1, 3, 6}
	cp := orig.Copy()
	cp[2] = 99
	assert.Equal(t, OID{1, 3, 6}, orig)
}

func TestVariableAccessors(t *testing.T) {
	v := Variable{OID: OIDSysName, Type: TypeOctetString, Value: []byte("switch01")}
	assert.Equal(t, "switch01", v.AsString())
	assert.Equal(t, []byte("switch01"), v.AsBytes())

	i := Variable{Type: TypeInteger, Value: int64(-42)}
	n, ok := i.AsInt()
	assert.True(t, ok)
	assert.Equal(t, int64(-42), n)

	c := Variable{Type: TypeCounter64, Value: uint64(1 << 40)}
	u, ok := c.AsUint()
	assert.True(t, ok)
	assert.Equal(t, uint64(1<<40), u)
}

func TestTimeTicksToString(t *testing.T) {
	assert.Equal(t, "00:00:01.50", TimeTicksToString(150))
	assert.Equal(t, "01:00:00.00", TimeTicksToString(360000))
	assert.Equal(t, "1 days, 00:00:00.00", TimeTicksToString(8640000))
}

func TestErrorStatusString(t *testing.T) {
	assert.Equal(t, "noError", NoError.String())
	assert.Equal(t, "noSuchName", NoSuchName.String())
	assert.Equal(t, "inconsistentName", InconsistentName.String())
	assert.Equal(t, "unknown(42)", ErrorStatus(42).String())
}
