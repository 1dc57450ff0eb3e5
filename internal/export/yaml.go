// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/chatwidget/internal/model"
)

// =============================================================================
// YAML EXPORTER
// =============================================================================

// YAMLExporter writes a readable YAML rendition of the conversation. It is
// an export-only format; Unmarshal reads JSON.
type YAMLExporter struct {
	options *Options
}

// NewYAMLExporter creates a new YAML exporter.
func NewYAMLExporter(opts *Options) *YAMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &YAMLExporter{options: opts}
}

type yamlMessage struct {
	ID         int64  `yaml:"id"`
	Type       string `yaml:"type"`
	Text       string `yaml:"text,omitempty"`
	Attachment string `yaml:"image,omitempty"`
	Username   string `yaml:"username,omitempty"`
	Timestamp  string `yaml:"timestamp,omitempty"`
	Reaction   string `yaml:"reaction,omitempty"`
}

type yamlDocument struct {
	Title      string        `yaml:"title"`
	ExportDate string        `yaml:"exportDate,omitempty"`
	Messages   []yamlMessage `yaml:"messages"`
}

// Export converts a conversation to YAML.
func (e *YAMLExporter) Export(conv *model.Conversation) ([]byte, error) {
	if err := validateTranscript(conv); err != nil {
		return nil, err
	}

	doc := yamlDocument{Title: conv.GetTitle()}
	if e.options.IncludeMetadata {
		doc.ExportDate = e.options.now().UTC().Format(ExportDateLayout)
	}
	for _, msg := range conv.Messages {
		wire, err := msg.Role.MarshalText()
		if err != nil {
			return nil, err
		}
		ym := yamlMessage{
			ID:       msg.ID,
			Type:     string(wire),
			Text:     msg.Text,
			Username: msg.Author,
			Reaction: string(msg.Reaction),
		}
		if e.options.IncludeTimestamps {
			ym.Timestamp = msg.CreatedAt
		}
		if msg.Attachment != "" {
			if e.options.InlineAttachments {
				ym.Attachment = msg.Attachment
			} else {
				ym.Attachment = AttachmentSummary(msg.Attachment)
			}
		}
		doc.Messages = append(doc.Messages, ym)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// FileExtension returns the file extension for YAML.
func (e *YAMLExporter) FileExtension() string {
	return ".yaml"
}

// MimeType returns the MIME type for YAML.
func (e *YAMLExporter) MimeType() string {
	return "application/yaml"
}
