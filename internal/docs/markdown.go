package docs

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// StripFrontmatter removes a leading YAML frontmatter block from Markdown
// content. Malformed frontmatter is left in place untouched.
func StripFrontmatter(content string) string {
	if !strings.HasPrefix(content, "---\n") {
		return content
	}
	endIdx := strings.Index(content[4:], "\n---")
	if endIdx < 0 {
		return content
	}
	frontmatter := content[4 : 4+endIdx]
	var meta map[string]any
	if err := yaml.Unmarshal([]byte(frontmatter), &meta); err != nil {
		return content
	}
	return strings.TrimPrefix(content[4+endIdx+4:], "\n")
}

// Title extracts a document title from frontmatter or the first h1 heading.
func Title(content string) string {
	if strings.HasPrefix(content, "---\n") {
		if endIdx := strings.Index(content[4:], "\n---"); endIdx > 0 {
			var meta map[string]any
			if err := yaml.Unmarshal([]byte(content[4:4+endIdx]), &meta); err == nil {
				if title, ok := meta["title"].(string); ok && title != "" {
					return title
				}
				if name, ok := meta["name"].(string); ok && name != "" {
					return name
				}
			}
		}
	}

	h1Regex := regexp.MustCompile(`(?m)^#\s+(.+)$`)
	if match := h1Regex.FindStringSubmatch(content); len(match) > 1 {
		return strings.TrimSpace(match[1])
	}
	return ""
}
