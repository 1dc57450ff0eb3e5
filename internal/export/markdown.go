// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/chatwidget/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports conversations to a Markdown transcript.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// frontmatter is the YAML header of a transcript.
type frontmatter struct {
	Title     string `yaml:"title"`
	Messages  int    `yaml:"messages"`
	Exported  string `yaml:"exported"`
	Generator string `yaml:"generator"`
}

// Export converts a conversation to Markdown format.
func (e *MarkdownExporter) Export(conv *model.Conversation) ([]byte, error) {
	if err := validateTranscript(conv); err != nil {
		return nil, err
	}

	var sb strings.Builder
	now := e.options.now()

	// YAML frontmatter with metadata
	if e.options.IncludeMetadata {
		header, err := yaml.Marshal(frontmatter{
			Title:     conv.GetTitle(),
			Messages:  len(conv.Messages),
			Exported:  now.Format(time.RFC3339),
			Generator: "chatwidget",
		})
		if err != nil {
			return nil, fmt.Errorf("frontmatter: %w", err)
		}
		sb.WriteString("---\n")
		sb.Write(header)
		sb.WriteString("---\n\n")
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(conv.GetTitle())))

	for i, msg := range conv.Messages {
		label := roleLabel(msg)
		if e.options.IncludeTimestamps && msg.CreatedAt != "" {
			sb.WriteString(fmt.Sprintf("### %s <sub>%s</sub>\n\n", escapeMarkdown(label), msg.CreatedAt))
		} else {
			sb.WriteString(fmt.Sprintf("### %s\n\n", escapeMarkdown(label)))
		}

		if msg.Attachment != "" {
			sb.WriteString(e.formatAttachment(msg.Attachment))
			sb.WriteString("\n\n")
		}
		if text := strings.TrimSpace(msg.Text); text != "" {
			// Assistant text is Markdown already; user text is quoted verbatim
			if msg.Role == model.RoleAssistant {
				sb.WriteString(text)
			} else {
				sb.WriteString(quote(text))
			}
			sb.WriteString("\n\n")
		}
		if msg.Reaction != model.ReactionNone {
			sb.WriteString(fmt.Sprintf("<sub>Reaction: %s</sub>\n\n", msg.Reaction))
		}

		if i < len(conv.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString("\n---\n\n")
	sb.WriteString(fmt.Sprintf("*Exported from chatwidget on %s*\n",
		now.Format("January 2, 2006 at 3:04 PM")))

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

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

func (e *MarkdownExporter) formatAttachment(ref string) string {
	if e.options.InlineAttachments {
		return fmt.Sprintf("![attachment](%s)", ref)
	}
	return fmt.Sprintf("*[%s]*", AttachmentSummary(ref))
}

// quote renders text as a Markdown block quote so user input cannot add
// headings or separators to the transcript.
func quote(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line == "" {
			lines[i] = ">"
		} else {
			lines[i] = "> " + line
		}
	}
	return strings.Join(lines, "\n")
}

// escapeMarkdown escapes special Markdown characters in plain text.
func escapeMarkdown(s string) string {
	// Only escape characters that would break formatting in titles/headings
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
