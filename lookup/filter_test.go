package lookup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectCandidate(t *testing.T) {
	t.Run("all candidates excluded", func(t *testing.T) {
		items := []Item{
			{RemoteID: "a", Title: "Song (Official Video)"},
			{RemoteID: "b", Title: "Song (Live)"},
		}
		_, err := SelectCandidate(items, []string{"official", "live"})
		assert.ErrorIs(t, err, ErrNoCandidate)
	})

	t.Run("empty list", func(t *testing.T) {
		_, err := SelectCandidate(nil, DefaultExcludedTerms)
		assert.ErrorIs(t, err, ErrNoCandidate)
	})

	t.Run("provider order is authoritative", func(t *testing.T) {
		items := []Item{
			{RemoteID: "a", Title: "Song - OFFICIAL"},
			{RemoteID: "b", Title: "Song (lyrics)"},
			{RemoteID: "c", Title: "Song (audio)"},
		}
		got, err := SelectCandidate(items, DefaultExcludedTerms)
		require.NoError(t, err)
		assert.Equal(t, Item{RemoteID: "b", Title: "Song (lyrics)"}, got)
	})

	t.Run("case-insensitive terms", func(t *testing.T) {
		items := []Item{
			{RemoteID: "a", Title: "Late Night SHOW performance"},
			{RemoteID: "b", Title: "Main Stage 2019"},
			{RemoteID: "c", Title: "Song"},
		}
		got, err := SelectCandidate(items, []string{"Show", "STAGE"})
		require.NoError(t, err)
		assert.Equal(t, "c", got.RemoteID)
	})

	t.Run("items without id or title are skipped", func(t *testing.T) {
		items := []Item{
			{RemoteID: "", Title: "Channel result"},
			{RemoteID: "a", Title: ""},
			{RemoteID: "b", Title: "Song"},
		}
		got, err := SelectCandidate(items, nil)
		require.NoError(t, err)
		assert.Equal(t, "b", got.RemoteID)
	})

	t.Run("blank terms are ignored", func(t *testing.T) {
		got, err := SelectCandidate([]Item{{RemoteID: "a", Title: "Song"}}, []string{"", "  "})
		require.NoError(t, err)
		assert.Equal(t, "a", got.RemoteID)
	})
}
