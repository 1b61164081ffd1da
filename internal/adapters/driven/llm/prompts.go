// Package llm holds what the answer generator adapters share: prompt
// loading and the built-in prompt text.
package llm

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-site/internal/core/ports/driven"
)

// DefaultSystemPrompt is used when no PromptStore is configured.
const DefaultSystemPrompt = `You answer questions about one website using only the numbered context passages you are given.
Answer in the language of the question. If the context does not contain the answer, say so plainly.
Mention the page title and URL of the passages you rely on. Never invent dates, prices, names or links.`

// DefaultUserPrompt takes the context and then the question.
const DefaultUserPrompt = `Context:
%s

Question: %s

Answer:`

// Messages returns the system and user messages for one answer.
// store may be nil.
func Messages(store driven.PromptStore, question, retrieved string) (system, user string) {
	system = load(store, driven.PromptAnswerSystem, DefaultSystemPrompt)
	user = fmt.Sprintf(load(store, driven.PromptAnswerUser, DefaultUserPrompt), retrieved, question)
	return system, user
}

// load falls back to the default on any store error, and when a user
// prompt lost its two placeholders.
func load(store driven.PromptStore, name, fallback string) string {
	if store == nil {
		return fallback
	}
	prompt, err := store.Load(name)
	if err != nil || strings.TrimSpace(prompt) == "" {
		return fallback
	}
	if name == driven.PromptAnswerUser && strings.Count(prompt, "%s") != 2 {
		return fallback
	}
	return prompt
}
