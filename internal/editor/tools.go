package editor

import "strings"

// Tool is an @-command offered as a completion inside the editor.
type Tool struct {
	Label  string `json:"label"`
	Detail string `json:"detail"`
	Apply  string `json:"apply"`
}

var tools = []Tool{
	{Label: "@search", Detail: "Search through the codebase", Apply: "@search "},
	{Label: "@edit", Detail: "Edit a file in the codebase", Apply: "@edit "},
	{Label: "@create", Detail: "Create a new file", Apply: "@create "},
	{Label: "@delete", Detail: "Delete a file", Apply: "@delete "},
	{Label: "@refactor", Detail: "Refactor code", Apply: "@refactor "},
	{Label: "@test", Detail: "Run tests", Apply: "@test "},
}

// Tools returns every available tool.
func Tools() []Tool {
	out := make([]Tool, len(tools))
	copy(out, tools)
	return out
}

// Suggest returns tools whose label contains the text after the leading
// "@" of word, case-insensitively. A bare "@" matches everything; a word
// not starting with "@" matches nothing.
func Suggest(word string) []Tool {
	if !strings.HasPrefix(word, "@") {
		return nil
	}
	needle := strings.ToLower(word[1:])
	var out []Tool
	for _, t := range tools {
		if strings.Contains(strings.ToLower(t.Label), needle) {
			out = append(out, t)
		}
	}
	return out
}
