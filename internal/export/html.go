// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/jeranaias/chatwidget/internal/model"
	"github.com/jeranaias/chatwidget/internal/render"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// ContentFunc renders the body of one message as HTML. The result is written
// verbatim, so implementations must escape anything they do not trust.
type ContentFunc func(msg model.Message) string

// HTMLExporter exports conversations to a standalone HTML page styled like
// the widget's chat bubbles.
type HTMLExporter struct {
	options *Options
	content ContentFunc
}

// NewHTMLExporter creates a new HTML exporter. Message text is escaped
// unless WithContent installs a richer renderer.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{
		options: opts,
		content: func(msg model.Message) string { return render.EscapeText(msg.Text) },
	}
}

// WithContent replaces the message body renderer and returns the exporter.
func (e *HTMLExporter) WithContent(fn ContentFunc) *HTMLExporter {
	if fn != nil {
		e.content = fn
	}
	return e
}

// Export converts a conversation to HTML format.
func (e *HTMLExporter) Export(conv *model.Conversation) ([]byte, error) {
	if err := validateTranscript(conv); err != nil {
		return nil, err
	}

	var sb strings.Builder
	now := e.options.now()
	title := html.EscapeString(conv.GetTitle())

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n<head>\n")
	sb.WriteString("  <meta charset=\"UTF-8\">\n")
	sb.WriteString("  <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("  <title>%s</title>\n", title))
	sb.WriteString("  <meta name=\"generator\" content=\"chatwidget\">\n")
	if e.options.IncludeMetadata {
		sb.WriteString(fmt.Sprintf("  <meta name=\"date\" content=\"%s\">\n", now.Format(time.RFC3339)))
	}
	sb.WriteString(bubbleCSS)
	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s\">\n", themeClass(e.options.Theme)))

	sb.WriteString(fmt.Sprintf("<header><h1>%s</h1>", title))
	if e.options.IncludeMetadata {
		sb.WriteString(fmt.Sprintf("<p class=\"meta\">%d messages</p>", len(conv.Messages)))
	}
	sb.WriteString("</header>\n<main class=\"messages\">\n")
	for _, msg := range conv.Messages {
		sb.WriteString(e.renderMessage(msg))
	}
	sb.WriteString("</main>\n")

	sb.WriteString(fmt.Sprintf("<footer>Exported from chatwidget on %s</footer>\n",
		now.Format("January 2, 2006 at 3:04 PM")))
	sb.WriteString("</body>\n</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

// renderMessage renders one message as a bubble with its info line.
func (e *HTMLExporter) renderMessage(msg model.Message) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("<div class=\"message %s\" data-id=\"%d\">\n", msg.Role, msg.ID))

	if msg.Attachment != "" {
		if e.options.InlineAttachments && isImageRef(msg.Attachment) {
			sb.WriteString(fmt.Sprintf("  <div class=\"attachment\"><img src=\"%s\" alt=\"attachment\"></div>\n",
				html.EscapeString(msg.Attachment)))
		} else {
			sb.WriteString(fmt.Sprintf("  <div class=\"attachment\">%s</div>\n",
				html.EscapeString(AttachmentSummary(msg.Attachment))))
		}
	}

	if msg.Text != "" {
		class := "message-text"
		if msg.Role == model.RoleAssistant {
			class = "markdown-content"
		}
		sb.WriteString(fmt.Sprintf("  <div class=\"bubble\"><div class=\"%s\">%s</div></div>\n", class, e.content(msg)))
	}

	sb.WriteString("  <div class=\"info\">")
	sb.WriteString(fmt.Sprintf("<span class=\"label\">%s</span>", html.EscapeString(roleLabel(msg))))
	if e.options.IncludeTimestamps && msg.CreatedAt != "" {
		sb.WriteString(fmt.Sprintf("<span>%s</span>", html.EscapeString(msg.CreatedAt)))
	}
	if msg.Reaction != model.ReactionNone {
		sb.WriteString(fmt.Sprintf("<span class=\"reaction\">%s</span>", html.EscapeString(string(msg.Reaction))))
	}
	sb.WriteString("</div>\n")

	sb.WriteString("</div>\n")
	return sb.String()
}

func isImageRef(ref string) bool {
	return strings.HasPrefix(ref, "data:image/") || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "http://")
}

func themeClass(theme string) string {
	if strings.EqualFold(theme, "light") {
		return "light"
	}
	return "dark"
}

// bubbleCSS mirrors the widget palette: red user bubbles on the right,
// bordered assistant bubbles on the left.
const bubbleCSS = `  <style>
    body { margin: 0 auto; max-width: 820px; padding: 24px; font-family: system-ui, sans-serif; }
    body.light { background: #f7f7f2; color: #2c2c2c; }
    body.dark { background: #2d2d2d; color: #ffffff; }
    header h1 { font-size: 20px; margin: 0 0 4px; }
    .meta, .info, footer { font-size: 12px; color: #666666; }
    body.dark .meta, body.dark .info, body.dark footer { color: #999999; }
    .messages { display: flex; flex-direction: column; gap: 16px; margin: 24px 0; }
    .message { display: flex; flex-direction: column; align-items: flex-start; }
    .message.user { align-items: flex-end; }
    .bubble { max-width: 70%; padding: 16px 20px; border-radius: 32px; word-wrap: break-word; box-shadow: 0 2px 8px rgba(0,0,0,0.1); }
    .user .bubble { background: #fe3636; color: white; border-bottom-right-radius: 12px; }
    .assistant .bubble, .system .bubble { border: 1px solid #e0e0e0; background: #ffffff; color: #2c2c2c; border-bottom-left-radius: 12px; }
    body.dark .assistant .bubble, body.dark .system .bubble { border-color: #5d5d5d; background: #3d3d3d; color: #ffffff; }
    .attachment { margin-bottom: 8px; }
    .attachment img { max-width: 300px; max-height: 300px; border-radius: 20px; }
    .info { display: flex; gap: 8px; margin-top: 4px; }
    .reaction { font-size: 16px; }
    .markdown-content pre { overflow-x: auto; padding: 8px; border-radius: 8px; background: rgba(0,0,0,0.06); }
  </style>
`
