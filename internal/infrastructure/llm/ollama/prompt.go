package ollama

import (
	"fmt"
	"strings"
)

const maxDocumentChars = 16000

func buildSubTopicPrompt(question string, labels []string) string {
	return fmt.Sprintf(`You classify exam questions into sub-topics.
Pick exactly one sub-topic from this list, nothing else:
%s

Return strict JSON object with keys:
sub_topic (string, one of the list above), confidence (number from 0 to 1).
No markdown, no extra keys.

Question:
%s`, "- "+strings.Join(labels, "\n- "), question)
}

func buildAnswerExtractionPrompt(question, documentText string) string {
	snippet := documentText
	if len(snippet) > maxDocumentChars {
		snippet = snippet[:maxDocumentChars]
	}

	return fmt.Sprintf(`You locate answers inside study material.
Copy the passage from the document that answers the question, verbatim,
without rephrasing. If the document does not answer it, use an empty string.

Return strict JSON object with keys:
answer (string, copied from the document), confidence (number from 0 to 1).
No markdown, no extra keys.

Question:
%s

Document:
%s`, question, snippet)
}
