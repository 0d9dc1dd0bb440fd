// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports conversations as a readable Markdown transcript.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	return &MarkdownExporter{options: orDefault(opts)}
}

type frontmatter struct {
	Title     string   `yaml:"title"`
	Model     string   `yaml:"model"`
	Date      string   `yaml:"date,omitempty"`
	Updated   string   `yaml:"updated,omitempty"`
	Messages  int      `yaml:"messages"`
	Tags      []string `yaml:"tags,omitempty"`
	Exported  string   `yaml:"exported"`
	Generator string   `yaml:"generator"`
}

// Export converts a conversation to Markdown.
func (e *MarkdownExporter) Export(conv *model.Conversation) ([]byte, error) {
	if conv == nil {
		return nil, ErrNilConversation
	}
	if len(conv.Messages) == 0 {
		return nil, errors.New("conversation has no messages")
	}

	var sb strings.Builder
	title := util.SingleLine(conv.Title)
	if title == "" {
		title = model.DefaultTitle
	}

	if e.options.IncludeMetadata {
		// yaml.Marshal quotes titles that would otherwise break the block.
		fm, err := yaml.Marshal(frontmatter{
			Title:     conv.Title,
			Model:     conv.Model,
			Date:      rfc3339(conv.CreatedAt),
			Updated:   rfc3339(conv.UpdatedAt),
			Messages:  len(conv.Messages),
			Tags:      conv.Tags,
			Exported:  e.options.now().Format(time.RFC3339),
			Generator: Generator,
		})
		if err != nil {
			return nil, fmt.Errorf("frontmatter: %w", err)
		}
		sb.WriteString("---\n")
		sb.Write(fm)
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(title))

	if e.options.IncludeMetadata {
		sb.WriteString("## Session Information\n\n")
		fmt.Fprintf(&sb, "- **Model**: %s\n", conv.Model)
		if !conv.CreatedAt.IsZero() {
			fmt.Fprintf(&sb, "- **Created**: %s\n", formatTimestamp(conv.CreatedAt))
			fmt.Fprintf(&sb, "- **Last Updated**: %s\n", formatTimestamp(conv.UpdatedAt))
		}
		fmt.Fprintf(&sb, "- **Messages**: %d\n", len(conv.Messages))
		if len(conv.Tags) > 0 {
			fmt.Fprintf(&sb, "- **Tags**: %s\n", strings.Join(conv.Tags, ", "))
		}
		if conv.SystemPrompt != "" {
			fmt.Fprintf(&sb, "- **System Prompt**: %s\n", util.SingleLine(conv.SystemPrompt))
		}
		sb.WriteString("\n---\n\n")
	}

	sb.WriteString("## Conversation\n\n")
	for i, msg := range conv.Messages {
		fmt.Fprintf(&sb, "### %s\n\n", msg.Role.DisplayName())
		if msg.Content.HasImage() {
			fmt.Fprintf(&sb, "![image](%s)\n\n", msg.Content.ImagePath)
		}
		sb.WriteString(closeFences(strings.TrimRight(msg.Text(), "\n")))
		sb.WriteString("\n\n")
		if i < len(conv.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	fmt.Fprintf(&sb, "---\n\n*Exported from %s*\n", Generator)
	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// closeFences appends a closing fence when a message ends inside an open
// code block, so the rest of the transcript is not swallowed by it.
func closeFences(content string) string {
	open := false
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			open = !open
		}
	}
	if open {
		return content + "\n```"
	}
	return content
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
	"<", `&lt;`,
	">", `&gt;`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func rfc3339(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
