package moderation

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func generateWords(count int) []string {
	words := make([]string, count)
	for i := range words {
		words[i] = fmt.Sprintf("word%dx", i)
	}
	return words
}

func Test_Moderation_LargeDictionary(t *testing.T) {
	req := require.New(t)
	words := generateWords(100_000)

	startBuild := time.Now()
	moderator, err := NewModerator(words, '*')
	req.NoError(err)
	t.Logf("✅ Building AC automaton for %d words: %v", len(words), time.Since(startBuild))

	req.Equal("say ******* now", moderator.Censor("say word42x now"))
}

func BenchmarkModerator_Censor(b *testing.B) {
	moderator, err := NewModerator(generateWords(10_000), '*')
	require.NoError(b, err)
	message := strings.Repeat("a perfectly fine chat line with word77x inside ", 4)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = moderator.Censor(message)
	}
}
