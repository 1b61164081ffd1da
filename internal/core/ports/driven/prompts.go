package driven

// Prompt names.
const (
	// PromptAnswerSystem has no placeholders.
	PromptAnswerSystem = "answer_system"

	// PromptAnswerUser takes the numbered context, then the question.
	PromptAnswerUser = "answer_user"
)

// PromptStore returns editable answer prompts.
type PromptStore interface {
	// Load fails only for unknown names. A missing or broken prompt
	// yields the built-in text.
	Load(name string) (string, error)

	// Reload drops loaded prompts so the next Load rereads them.
	Reload()
}

// PromptStoreAware is implemented by generators whose prompts can be
// swapped after construction.
type PromptStoreAware interface {
	SetPromptStore(store PromptStore)
}
