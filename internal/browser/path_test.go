package browser

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// randomPath builds a root-anchored path of n distinct folders.
func randomPath(r *rand.Rand, n int) Path {
	p := NewPath()
	for i := 0; i < n; i++ {
		p = p.Push(fmt.Sprintf("id-%d-%d", i, r.Intn(1000)), fmt.Sprintf("Folder %d", i))
	}
	return p
}

func TestPathTruncateToEveryIndex(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for trial := 0; trial < 50; trial++ {
		p := randomPath(r, r.Intn(8))
		for i := range p {
			got, ok := p.TruncateTo(p[i].ID)
			require.True(t, ok)
			assert.Equal(t, p[:i+1], got)
			assert.Equal(t, p[i].ID, got.Current().ID)
		}
	}
}

func TestPathTruncateToUnknownID(t *testing.T) {
	p := NewPath().Push("a", "A").Push("b", "B")
	got, ok := p.TruncateTo("zzz")
	assert.False(t, ok)
	assert.Equal(t, p, got)
}

func TestPathPushEmptyIDIsNoop(t *testing.T) {
	p := NewPath().Push("a", "A")
	assert.Equal(t, p, p.Push("", "Anything"))
	assert.Equal(t, NewPath(), NewPath().Push("", "Root"))
}

func TestPathPushCurrentIDIsNoop(t *testing.T) {
	p := NewPath().Push("a", "Reports")
	assert.Equal(t, p, p.Push("a", "Reports"))
	assert.Len(t, p.Push("b", "B").Push("b", "B"), 3)
}

func TestPathPushDoesNotAlias(t *testing.T) {
	base := NewPath().Push("a", "A")
	left := base.Push("b", "B")
	right := base.Push("c", "C")
	assert.Equal(t, "b", left.Current().ID)
	assert.Equal(t, "c", right.Current().ID)
}

func TestPathParentAndString(t *testing.T) {
	_, ok := NewPath().Parent()
	assert.False(t, ok)

	p := NewPath().Push("a", "Reports").Push("b", "2024")
	parent, ok := p.Parent()
	require.True(t, ok)
	assert.Equal(t, "a", parent.ID)
	assert.Equal(t, "Root / Reports / 2024", p.String())
	assert.Equal(t, Root, Path(nil).Current())
}
