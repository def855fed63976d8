package tags

import (
	"fmt"

	"github.com/gayunlee/letter-post-weekly-report/internal/domain"
)

// VerifierSystemPrompt is the prompt for the auxiliary verifier pass: same
// vocabulary contract as the primary extraction, so the two passes are
// comparable tag-for-tag.
func VerifierSystemPrompt(topic domain.Topic) string {
	return buildSystemPrompt(topic)
}

func VerifierUserPrompt(item domain.ClassifiedItem) string {
	return fmt.Sprintf("[sentiment: %s]\n\n%s", item.Sentiment, truncateRunes(item.RawText, maxPromptChars))
}
