package application

import "strings"

// PersonalizeMemorialPrompt substitutes the remembered person's name into a
// Remembering question. Both placeholder spellings used by the catalog are
// handled. With no known name the question passes through unchanged.
func PersonalizeMemorialPrompt(question, name string) string {
	if name == "" {
		return question
	}
	replacer := strings.NewReplacer("[Name]", name, "[name]", name)
	return replacer.Replace(question)
}
