// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// convert.go - The render and export commands.
//
// Both read a conversation export (the widget's JSON interchange format,
// legacy arrays included) and write it in another form without starting an
// interactive session.
//
// Command: render FILE      Render an export as a standalone HTML page
// Command: export FILE      Convert an export to json, md, html or yaml

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jeranaias/chatwidget/internal/export"
	"github.com/jeranaias/chatwidget/internal/model"
	"github.com/jeranaias/chatwidget/internal/render"
	"github.com/jeranaias/chatwidget/internal/surface"
	"github.com/jeranaias/chatwidget/internal/util"
	"github.com/jeranaias/chatwidget/internal/widget"
)

// =============================================================================
// RENDER
// =============================================================================

type renderOptions struct {
	output string
	theme  string
}

func newRenderCommand(a *app) *cobra.Command {
	opts := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render FILE",
		Short: "Render a conversation export as an HTML page",
		Long: `Render imports FILE into a widget with an HTML surface and writes the
surface as a standalone page. Assistant messages get Markdown and math
rendering as configured under [render]; everything else is escaped.`,
		Example: `  chatwidget render chat.json -o chat.html
  chatwidget render chat.json --theme light > chat.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRender(args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "-", "Output file (- for stdout)")
	cmd.Flags().StringVar(&opts.theme, "theme", "", "Page theme: dark or light (default from config)")
	return cmd
}

func (a *app) runRender(path string, opts *renderOptions) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return NewCommandError("render", "read", err)
	}

	page := surface.NewHTMLSurface()
	w := a.newWidget(widget.Options{Surface: page, Scheduler: inlineScheduler{}})
	if err := w.ImportConversation(string(raw)); err != nil {
		return NewCommandError("render", "import "+path, err)
	}

	theme := opts.theme
	if theme == "" {
		theme = a.cfg.UI.Theme
	}
	doc, err := page.Document(w.Title(), &export.Options{
		IncludeMetadata:   true,
		IncludeTimestamps: a.cfg.UI.ShowTimestamps,
		InlineAttachments: a.cfg.Export.InlineAttachments,
		Theme:             theme,
	})
	if err != nil {
		return NewCommandError("render", "document", err)
	}
	a.metrics.Export("html")
	return a.emit(opts.output, doc)
}

// =============================================================================
// EXPORT
// =============================================================================

type exportOptions struct {
	format    string
	outputDir string
	stdout    bool
	open      bool
	inline    bool
	noMeta    bool
}

func newExportCommand(a *app) *cobra.Command {
	opts := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Convert a conversation export to another format",
		Long: fmt.Sprintf(`Export reads FILE and writes it as a transcript.

Supported formats: %s. The json format is the interchange format itself
and can be imported back into a widget.`, strings.Join(export.Formats, ", ")),
		Example: `  chatwidget export chat.json --format md
  chatwidget export chat.json --format html --output-dir ./out --open
  chatwidget export chat.json --format yaml --stdout`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExport(args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "Output format (default from config)")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "Directory to write to (default from config)")
	cmd.Flags().BoolVar(&opts.stdout, "stdout", false, "Write to stdout instead of a file")
	cmd.Flags().BoolVar(&opts.open, "open", false, "Open the file after exporting")
	cmd.Flags().BoolVar(&opts.inline, "inline-attachments", false, "Embed attachment data instead of a summary")
	cmd.Flags().BoolVar(&opts.noMeta, "no-metadata", false, "Leave out the metadata header")
	return cmd
}

func (a *app) runExport(path string, opts *exportOptions) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return NewCommandError("export", "read", err)
	}
	conv, err := export.Unmarshal(raw, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	if err != nil {
		return NewCommandError("export", "import "+path, err)
	}

	format := opts.format
	if format == "" {
		format = a.cfg.Export.Format
	}
	outputDir := opts.outputDir
	if outputDir == "" {
		outputDir = a.cfg.Export.OutputDir
	}
	exportOpts := &export.Options{
		OutputDir:         outputDir,
		OpenAfterExport:   opts.open,
		IncludeMetadata:   !opts.noMeta,
		IncludeTimestamps: a.cfg.UI.ShowTimestamps,
		InlineAttachments: opts.inline || a.cfg.Export.InlineAttachments,
		Theme:             a.cfg.UI.Theme,
	}

	exporter, err := export.ForFormat(format, exportOpts)
	if err != nil {
		return NewUsageError("format", format, err.Error())
	}
	if page, ok := exporter.(*export.HTMLExporter); ok {
		page.WithContent(a.htmlContent())
	}

	if opts.stdout {
		content, err := exporter.Export(conv)
		if err != nil {
			return NewCommandError("export", "encode", err)
		}
		a.metrics.Export(format)
		_, err = a.stdout.Write(content)
		return err
	}

	out, err := export.ExportToFile(conv, exporter, exportOpts)
	if err != nil && out == "" {
		return NewCommandError("export", "write", err)
	}
	a.metrics.Export(format)
	a.report(out, len(conv.Messages))
	if err != nil {
		a.say("%s %v", WarningStyle.Render("[Warning]"), err)
	}
	return nil
}

// htmlContent renders message bodies the same way the HTML surface does.
func (a *app) htmlContent() export.ContentFunc {
	renderer := render.NewRenderer(a.logger)
	renderer.OnDegraded(a.metrics.RenderDegraded)
	caps := widget.CapabilitiesFromConfig(a.cfg.Render)
	return func(msg model.Message) string {
		return renderer.Render(msg.Text, msg.Role, caps).Markup
	}
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

// emit writes content to stdout for "-" and atomically to a file otherwise.
func (a *app) emit(output string, content []byte) error {
	if output == "" || output == "-" {
		_, err := a.stdout.Write(content)
		return err
	}
	if err := util.AtomicWriteFile(output, content, 0644); err != nil {
		return NewCommandError("write", output, err)
	}
	a.report(output, -1)
	return nil
}

// report prints the written path and size to stderr.
func (a *app) report(path string, messages int) {
	size := ""
	if info, err := os.Stat(path); err == nil {
		size = humanize.Bytes(uint64(info.Size()))
	}
	if messages >= 0 {
		a.say("%s %s (%s, %d messages)", SuccessStyle.Render("[OK]"), path, size, messages)
		return
	}
	a.say("%s %s (%s)", SuccessStyle.Render("[OK]"), path, size)
}
