package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateTagIsRandomHex(t *testing.T) {
	a := generateTag()
	b := generateTag()
	require.NotEmpty(t, a)
	require.NotEqual(t, a, b)
	require.Len(t, a, 16) // 8 random bytes, hex-encoded
}

func TestDialogTablePutGetRemove(t *testing.T) {
	table := newDialogTable()

	ds := &dialogState{callID: "call-1", localTag: "abc"}
	table.put(ds)

	got, ok := table.get("call-1")
	require.True(t, ok)
	require.Equal(t, "abc", got.localTag)

	table.remove("call-1")
	_, ok = table.get("call-1")
	require.False(t, ok)
}

func TestDialogStateIncrementCSeqIsMonotonic(t *testing.T) {
	ds := &dialogState{}
	require.Equal(t, uint32(1), ds.incrementCSeq())
	require.Equal(t, uint32(2), ds.incrementCSeq())
	require.Equal(t, uint32(3), ds.incrementCSeq())
}
