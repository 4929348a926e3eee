package repositories

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Blacklist_Roundtrip(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewBlacklistRepository(db)

	words, err := repository.Words()
	req.NoError(err)
	req.Empty(words)

	req.NoError(repository.AddWords([]string{"attack", "bomb"}))
	req.NoError(repository.AddWords([]string{"attack"}))

	words, err = repository.Words()
	req.NoError(err)
	req.ElementsMatch([]string{"attack", "bomb"}, words)
}
