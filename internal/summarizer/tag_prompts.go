package summarizer

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"summarygen/internal/table"
)

const (
	tagPromptsTagColumn    = "Tag"
	tagPromptsPromptColumn = "Prompt"
)

// TagPrompts maps an "AI Summary Tag" value to its prompt text.
type TagPrompts map[string]string

// LoadTagPrompts reads a CSV file with Tag and Prompt columns. A missing
// file yields an empty set.
func LoadTagPrompts(path string) (TagPrompts, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return TagPrompts{}, nil
	}

	tbl, err := table.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return TagPrompts{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tag prompts: %w", err)
	}

	tagIdx := tbl.ColumnIndex(tagPromptsTagColumn)
	promptIdx := tbl.ColumnIndex(tagPromptsPromptColumn)
	if tagIdx < 0 || promptIdx < 0 {
		return nil, fmt.Errorf(
			"tag prompts file must contain %q and %q columns (path = %s)",
			tagPromptsTagColumn,
			tagPromptsPromptColumn,
			path,
		)
	}

	prompts := make(TagPrompts, tbl.Len())
	for _, record := range tbl.Records {
		tag := strings.TrimSpace(record[tagIdx])
		prompt := strings.TrimSpace(record[promptIdx])
		if tag == "" || prompt == "" {
			continue
		}
		prompts[tag] = prompt
	}

	return prompts, nil
}

// Template returns the template for tag, or false when the tag is unknown.
func (p TagPrompts) Template(tag string) (Template, bool) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return Template{}, false
	}

	text, ok := p[tag]
	if !ok {
		return Template{}, false
	}

	return Template{Name: tag, Text: text}, true
}

func (p TagPrompts) Tags() []string {
	tags := make([]string, 0, len(p))
	for tag := range p {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}
