// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jeranaias/chatwidget/internal/model"
)

// ExportDateLayout is the ISO-8601 layout of the exportDate field.
const ExportDateLayout = "2006-01-02T15:04:05.000Z"

// =============================================================================
// INTERCHANGE FORMAT
// =============================================================================

// document is the canonical export shape.
type document struct {
	Title      string          `json:"title"`
	Messages   []model.Message `json:"messages"`
	ExportDate string          `json:"exportDate"`
}

// importDocument accepts the object shape with every key optional.
type importDocument struct {
	Title    *string         `json:"title"`
	Messages []model.Message `json:"messages"`
}

// Marshal encodes conv in the interchange format. now is written as the
// export date in UTC.
func Marshal(conv *model.Conversation, now time.Time) ([]byte, error) {
	if conv == nil {
		return nil, fmt.Errorf("conversation is nil")
	}

	doc := document{
		Title:      conv.Title,
		Messages:   conv.Messages,
		ExportDate: now.UTC().Format(ExportDateLayout),
	}
	if doc.Messages == nil {
		doc.Messages = []model.Message{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode conversation: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Unmarshal parses raw in either the object shape or the legacy bare-array
// shape. currentTitle is kept when the payload carries no title (legacy
// arrays never do). Every failure wraps model.ErrFormat.
func Unmarshal(raw []byte, currentTitle string) (*model.Conversation, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty payload", model.ErrFormat)
	}

	conv := &model.Conversation{Title: currentTitle}

	switch trimmed[0] {
	case '[':
		var msgs []model.Message
		if err := json.Unmarshal(trimmed, &msgs); err != nil {
			return nil, fmt.Errorf("%w: legacy array: %v", model.ErrFormat, err)
		}
		conv.Messages = msgs

	case '{':
		var doc importDocument
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrFormat, err)
		}
		if doc.Title != nil && *doc.Title != "" {
			conv.Title = *doc.Title
		}
		conv.Messages = doc.Messages

	default:
		return nil, fmt.Errorf("%w: expected object or array", model.ErrFormat)
	}

	if conv.Messages == nil {
		conv.Messages = []model.Message{}
	}
	resolveIDCollisions(conv.Messages)
	if err := model.ValidateLog(conv.Messages); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrFormat, err)
	}
	return conv, nil
}

// resolveIDCollisions moves messages whose id repeats an earlier one
// without going backwards onto the next free id, in order. Exports written
// with millisecond-clock ids repeat an id when two messages were sent in
// the same millisecond. Ids that go backwards are left for validation to
// reject. It returns how many ids changed.
func resolveIDCollisions(msgs []model.Message) int {
	if len(msgs) < 2 {
		return 0
	}
	changed := 0
	origPrev := msgs[0].ID
	for i := 1; i < len(msgs); i++ {
		orig := msgs[i].ID
		if orig > 0 && orig >= origPrev && orig <= msgs[i-1].ID {
			msgs[i].ID = msgs[i-1].ID + 1
			changed++
		}
		origPrev = orig
	}
	return changed
}

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter writes the interchange format, so its files can be imported
// back into a widget.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export converts a conversation to the interchange format. Unlike the
// transcript exporters an empty conversation is valid.
func (e *JSONExporter) Export(conv *model.Conversation) ([]byte, error) {
	return Marshal(conv, e.options.now())
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
