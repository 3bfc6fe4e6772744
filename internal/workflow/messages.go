package workflow

import "fmt"

// Supported languages
const (
	LangES = "es"
	LangEN = "en"
)

// Messages are the user-visible strings for one language
type Messages struct {
	Prompt string
	Done   string
	Failed string
}

var catalog = map[string]Messages{
	LangES: {
		Prompt: "Introduce un texto",
		Done:   "Texto procesado y fichero descargado.",
		Failed: "No se pudo guardar el fichero.",
	},
	LangEN: {
		Prompt: "Enter some text",
		Done:   "Text processed and file downloaded.",
		Failed: "The file could not be saved.",
	},
}

// MessagesFor returns the catalog entry for lang
func MessagesFor(lang string) (Messages, error) {
	m, ok := catalog[lang]
	if !ok {
		return Messages{}, fmt.Errorf("unsupported language: %s", lang)
	}
	return m, nil
}

// For returns the message of the given kind
func (m Messages) For(kind Kind) string {
	switch kind {
	case KindPrompt:
		return m.Prompt
	case KindDone:
		return m.Done
	default:
		return m.Failed
	}
}
