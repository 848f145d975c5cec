package sandbox

import (
	"regexp"
	"strings"
)

// Language of a code block, normalized from the fence tag.
type Language string

const (
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
)

// Limits on extraction.
const (
	maxBlocks    = 3
	maxBlockSize = 5000
)

// CodeBlock is one fenced block pulled from LLM output.
type CodeBlock struct {
	Language Language
	Code     string
}

var fencePattern = regexp.MustCompile("(?s)```([a-zA-Z]*)\\n(.*?)```")

// ExtractCodeBlocks pulls up to three fenced code blocks from text. Unknown
// or missing fence tags default to python; oversize blocks are skipped.
func ExtractCodeBlocks(text string) []CodeBlock {
	matches := fencePattern.FindAllStringSubmatch(text, -1)
	blocks := make([]CodeBlock, 0, len(matches))
	for _, match := range matches {
		if len(blocks) == maxBlocks {
			break
		}
		code := strings.TrimRight(match[2], "\n")
		if code == "" || len(code) > maxBlockSize {
			continue
		}
		blocks = append(blocks, CodeBlock{
			Language: normalizeLanguage(match[1]),
			Code:     code,
		})
	}
	return blocks
}

func normalizeLanguage(tag string) Language {
	switch strings.ToLower(tag) {
	case "javascript", "js":
		return LangJavaScript
	default:
		// python, py, and anything else.
		return LangPython
	}
}
