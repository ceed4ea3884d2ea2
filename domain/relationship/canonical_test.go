package relationship

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/pmacom/fivethirtynews-relate/pkg/errors"
)

func TestCanonicalizeIsOrderIndependent(t *testing.T) {
	ab, err := Canonicalize("content-a", "content-b")
	require.NoError(t, err)

	ba, err := Canonicalize("content-b", "content-a")
	require.NoError(t, err)

	assert.Equal(t, ab, ba)
	assert.Equal(t, ab.Key(), ba.Key())
	assert.Equal(t, "content-a", ab.First)
	assert.Equal(t, "content-b", ab.Second)
}

func TestCanonicalizeRejectsSelfPair(t *testing.T) {
	_, err := Canonicalize("content-a", "content-a")
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidArgument(err))
}

func TestCanonicalizeRejectsEmptyIDs(t *testing.T) {
	for _, pair := range [][2]string{{"", "b"}, {"a", ""}, {"", ""}} {
		_, err := Canonicalize(pair[0], pair[1])
		assert.True(t, apperrors.IsInvalidArgument(err), "pair %v", pair)
	}
}

func TestCanonicalPairMembers(t *testing.T) {
	p, err := Canonicalize("zzz", "aaa")
	require.NoError(t, err)

	assert.True(t, p.Contains("aaa"))
	assert.True(t, p.Contains("zzz"))
	assert.False(t, p.Contains("mmm"))

	assert.Equal(t, "zzz", p.Other("aaa"))
	assert.Equal(t, "aaa", p.Other("zzz"))
	assert.Equal(t, "", p.Other("mmm"))
}
