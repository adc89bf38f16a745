package edit_test

import (
	"testing"

	"github.com/aledsdavies/perl-lsp-core/edit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplySimpleSplice(t *testing.T) {
	src := []byte("my $x = 42;")
	out := edit.Apply(src, edit.Edit{StartByte: 8, OldEndByte: 10, NewText: "43"}, nil)
	assert.Equal(t, "my $x = 43;", string(out))
}

func TestApplyInsertion(t *testing.T) {
	src := []byte("my $x = 1;")
	out := edit.Apply(src, edit.Edit{StartByte: 0, OldEndByte: 0, NewText: "my $w = 4; "}, nil)
	assert.Equal(t, "my $w = 4; my $x = 1;", string(out))
}

func TestApplyRejectsNonUTF8Boundary(t *testing.T) {
	src := []byte("my $x = \"héllo\";") // 'é' is 2 bytes
	idx := -1
	for i := 0; i < len(src); i++ {
		if src[i] == 0xc3 {
			idx = i + 1 // the continuation byte, not a boundary
			break
		}
	}
	require.NotEqual(t, -1, idx)
	out := edit.Apply(src, edit.Edit{StartByte: uint32(idx), OldEndByte: uint32(idx), NewText: "x"}, nil)
	assert.Equal(t, src, out, "source must be unchanged when an endpoint isn't a UTF-8 boundary")
}

func TestApplyBatchDescendingOrder(t *testing.T) {
	src := []byte("sub calculate { my $a = 10; my $b = 20; return $a + $b; }")
	set := edit.Set{
		{StartByte: 24, OldEndByte: 26, NewText: "15"},
		{StartByte: 36, OldEndByte: 38, NewText: "25"},
	}
	out, affStart, affEnd := edit.ApplyBatch(src, set, nil)
	assert.Contains(t, string(out), "15")
	assert.Contains(t, string(out), "25")
	assert.Equal(t, uint32(24), affStart)
	assert.Equal(t, uint32(38), affEnd)
}

func TestDelta(t *testing.T) {
	e := edit.Edit{StartByte: 5, OldEndByte: 7, NewText: "abcd"}
	assert.Equal(t, int64(2), e.Delta())
}
