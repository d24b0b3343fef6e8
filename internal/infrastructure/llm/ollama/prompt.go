package ollama

import (
	"fmt"
	"strings"

	"github.com/atlashist/archive-assistant/internal/core/domain"
)

func buildAnswerPrompt(question string, passages []domain.RankedResult) string {
	var contextBuilder strings.Builder
	for idx, r := range passages {
		contextBuilder.WriteString(fmt.Sprintf(
			"[%d] corpus=%s date=%s source=%s\n%s\n\n",
			idx+1,
			r.Passage.Corpus,
			r.Passage.Metadata["date"],
			r.Passage.Metadata["source_url"],
			r.Passage.Text,
		))
	}

	return fmt.Sprintf(`You answer questions about historical sources.
Use only the numbered passages below. Cite passage numbers like [1].
If the passages do not contain the answer, say so directly.

Question:
%s

Passages:
%s
`, question, contextBuilder.String())
}
