package parser

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const fence = "---"

// Frontmatter is the YAML header of a component or SOP markdown file.
type Frontmatter struct {
	ID          string         `yaml:"id"`
	Type        string         `yaml:"type,omitempty"`
	Title       string         `yaml:"title,omitempty"`
	Version     string         `yaml:"version,omitempty"`
	Status      string         `yaml:"status,omitempty"`
	Owner       string         `yaml:"owner,omitempty"`
	Description string         `yaml:"description,omitempty"`
	Tags        []string       `yaml:"tags,omitempty"`
	Extra       map[string]any `yaml:",inline"`
}

// SplitFrontmatter separates a leading "---" fenced block from the body.
// ok is false when the content has no frontmatter; body is then the input.
func SplitFrontmatter(content string) (header, body string, ok bool) {
	text := strings.TrimPrefix(content, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")

	if !strings.HasPrefix(text, fence+"\n") {
		return "", content, false
	}

	rest := text[len(fence)+1:]
	end := strings.Index(rest, "\n"+fence)
	if end < 0 {
		return "", content, false
	}

	header = rest[:end]
	body = rest[end+len(fence)+1:]
	body = strings.TrimLeft(body, "\n")
	return header, body, true
}

// ParseFrontmatter decodes the YAML header of content. A nil Frontmatter with
// a nil error means the content has no header.
func ParseFrontmatter(content string) (*Frontmatter, string, error) {
	header, body, ok := SplitFrontmatter(content)
	if !ok {
		return nil, body, nil
	}

	var fm Frontmatter
	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		return nil, body, fmt.Errorf("parse frontmatter: %w", err)
	}
	return &fm, body, nil
}
