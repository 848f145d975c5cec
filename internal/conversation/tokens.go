package conversation

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// tokenCounter measures prompt sizes so system prompts stay inside the
// model's budget. Encoding data is fetched lazily; when unavailable
// (offline hosts) a chars/4 estimate is used instead.
type tokenCounter struct {
	once     sync.Once
	encoding *tiktoken.Tiktoken
}

func (c *tokenCounter) count(text string) int {
	c.once.Do(func() {
		if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
			c.encoding = enc
		}
	})
	if c.encoding == nil {
		return len(text) / 4
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// trimToTokens truncates text to roughly the given token budget.
func (c *tokenCounter) trimToTokens(text string, budget int) string {
	if c.count(text) <= budget {
		return text
	}
	// Binary chop on bytes; token counts are monotone in prefix length.
	lo, hi := 0, len(text)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if c.count(text[:mid]) <= budget {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return text[:lo]
}
