// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command for the chatwidget CLI.
//
// Command: chat
// Short:   Start an interactive chat session
//
// Examples:
//   chatwidget chat                           Start with an empty conversation
//   chatwidget chat --import chat.json        Continue an exported chat
//   chatwidget chat --import chat.json --watch
//                                             Re-import whenever the file changes
//
// Plain input is sent as a user message (or commits the message being
// edited). Slash commands drive everything else; /help lists them.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/chatwidget/internal/config"
	"github.com/jeranaias/chatwidget/internal/diff"
	"github.com/jeranaias/chatwidget/internal/model"
	editsession "github.com/jeranaias/chatwidget/internal/session"
	"github.com/jeranaias/chatwidget/internal/surface"
	"github.com/jeranaias/chatwidget/internal/telemetry"
	"github.com/jeranaias/chatwidget/internal/util"
	"github.com/jeranaias/chatwidget/internal/widget"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completeCommand)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	c.LoadHistory()
	return c
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input. A non-empty prefill is placed in the
// line editor ready to be changed.
func (c *ChatCLI) ReadInput(prompt, prefill string) (string, error) {
	var (
		input string
		err   error
	)
	if prefill != "" {
		input, err = c.line.PromptWithSuggestion(prompt, prefill, -1)
	} else {
		input, err = c.line.Prompt(prompt)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists command history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

func completeCommand(line string) []string {
	if !strings.HasPrefix(line, "/") || strings.Contains(line, " ") {
		return nil
	}
	var out []string
	for _, c := range slashCommands {
		name := strings.Fields(c.usage)[0]
		if strings.HasPrefix(name, line) {
			out = append(out, name)
		}
	}
	return out
}

// =============================================================================
// SESSION STATE
// =============================================================================

// ChatSession is one interactive session: a widget printing to a terminal
// surface plus the little state the prompt needs.
type ChatSession struct {
	Widget    *widget.Widget
	Metrics   *telemetry.Metrics
	Out       io.Writer
	StartTime time.Time

	// prefill is offered as the next input line (edit text, math snippet)
	prefill string
}

// NewChatSession creates a session writing to out.
func NewChatSession(w *widget.Widget, m *telemetry.Metrics, out io.Writer) *ChatSession {
	return &ChatSession{
		Widget:    w,
		Metrics:   m,
		Out:       out,
		StartTime: time.Now(),
	}
}

// Prompt returns the prompt for the next line.
func (s *ChatSession) Prompt() string {
	if t, ok := s.Widget.Editing(); ok {
		return fmt.Sprintf("edit #%d> ", t.ID)
	}
	return "> "
}

// TakePrefill returns and clears the pending prefill.
func (s *ChatSession) TakePrefill() string {
	p := s.prefill
	s.prefill = ""
	return p
}

// HandleLine processes one input line. It returns false when the session
// should end.
func (s *ChatSession) HandleLine(input string) (bool, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return true, nil
	}
	if strings.HasPrefix(input, "/") {
		return s.handleSlashCommand(input)
	}
	if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
		return false, nil
	}
	return true, s.submit(input, "")
}

// submit sends a message, or commits the edit in progress and shows what
// changed.
func (s *ChatSession) submit(text, ref string) error {
	t, editing := s.Widget.Editing()
	before := len(s.Widget.Messages())
	msg, err := s.Widget.Submit(text, ref)
	if err != nil || !editing {
		return err
	}
	s.printEditResult(t, msg, before-len(s.Widget.Messages()))
	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

type slashCommand struct {
	usage string
	desc  string
}

var slashCommands = []slashCommand{
	{"/edit ID", "Edit a message; the next line commits it"},
	{"/commit [TEXT]", "Commit the edit (TEXT or the pending text)"},
	{"/cancel", "Cancel the edit"},
	{"/noimage", "Remove the attachment from the message being edited"},
	{"/react ID GLYPH", "Toggle a reaction (👍, 👎, like, dislike)"},
	{"/ai TEXT", "Add an assistant message"},
	{"/system TEXT", "Add a system message"},
	{"/image REF [TEXT]", "Send an image (data URI or file path)"},
	{"/copy ID", "Print the text of a message"},
	{"/select ID", "Highlight a message"},
	{"/regen ID", "Ask for a message to be regenerated"},
	{"/math KIND VALUE", "Insert a math preset (style easy|expert, length short|medium|long)"},
	{"/export [PATH]", "Print the export, or write it to PATH"},
	{"/import PATH", "Replace the conversation with an export file"},
	{"/share", "Print the export for sharing"},
	{"/title [TEXT]", "Show or set the title"},
	{"/name [TEXT]", "Show or set your name"},
	{"/clear", "Clear the conversation"},
	{"/stats", "Show session statistics"},
	{"/help", "Show this help"},
	{"/quit", "Exit chat"},
}

// handleSlashCommand processes slash commands.
// Returns (shouldContinue, error) where shouldContinue=false means exit.
func (s *ChatSession) handleSlashCommand(input string) (bool, error) {
	command, rest, _ := strings.Cut(input, " ")
	command = strings.ToLower(command)
	rest = strings.TrimSpace(rest)
	w := s.Widget

	switch command {
	case "/help", "/h", "/?", "/":
		s.printHelp()

	case "/quit", "/q", "/exit":
		return false, nil

	case "/edit", "/e":
		id, err := parseID(rest)
		if err != nil {
			return true, err
		}
		if err := w.BeginEdit(id); err != nil {
			return true, err
		}
		t, _ := w.Editing()
		s.prefill = t.PendingText
		if t.PendingAttachment != "" {
			s.notice("editing #%d (attachment kept; /noimage removes it)", id)
		}

	case "/commit":
		t, ok := w.Editing()
		if !ok {
			return true, model.ErrNotEditing
		}
		if rest == "" {
			rest = t.PendingText
		}
		before := len(w.Messages())
		msg, err := w.CommitEdit(rest)
		if err != nil {
			return true, err
		}
		s.printEditResult(t, msg, before-len(w.Messages()))

	case "/cancel":
		w.CancelEdit()
		s.notice("edit cancelled")

	case "/noimage":
		return true, w.ClearEditAttachment()

	case "/react", "/r":
		idArg, glyphArg, _ := strings.Cut(rest, " ")
		id, err := parseID(idArg)
		if err != nil {
			return true, err
		}
		glyph, err := model.ParseReaction(strings.TrimSpace(glyphArg))
		if err != nil {
			return true, err
		}
		_, err = w.React(id, glyph)
		return true, err

	case "/ai":
		_, err := w.SendAsAssistant(rest)
		return true, err

	case "/system":
		_, err := w.SendSystem(rest)
		return true, err

	case "/image":
		refArg, text, _ := strings.Cut(rest, " ")
		ref, err := loadAttachment(refArg)
		if err != nil {
			return true, err
		}
		return true, s.submit(strings.TrimSpace(text), ref)

	case "/copy":
		id, err := parseID(rest)
		if err != nil {
			return true, err
		}
		text, err := w.Copy(id)
		if err != nil {
			return true, err
		}
		fmt.Fprintln(s.Out, util.StripControl(text))

	case "/select":
		id, err := parseID(rest)
		if err != nil {
			return true, err
		}
		return true, w.Select(id)

	case "/regen":
		id, err := parseID(rest)
		if err != nil {
			return true, err
		}
		return true, w.Regenerate(id)

	case "/math":
		kind, value, _ := strings.Cut(rest, " ")
		s.prefill = w.MathSnippet(kind, strings.TrimSpace(value))

	case "/export":
		return true, s.exportTo(rest)

	case "/share":
		raw, err := w.Share()
		if err != nil {
			return true, err
		}
		fmt.Fprintln(s.Out, raw)

	case "/import":
		if rest == "" {
			return true, NewUsageError("path", "", "/import needs a file")
		}
		raw, err := os.ReadFile(rest)
		if err != nil {
			return true, err
		}
		if err := w.ImportConversation(string(raw)); err != nil {
			return true, err
		}
		s.notice("imported %d messages", len(w.Messages()))

	case "/title":
		if rest != "" {
			w.SetTitle(rest)
		}
		s.notice("title: %s", util.StripControl(w.Title()))

	case "/name":
		if rest != "" {
			w.SetAuthorName(rest)
		}
		s.notice("name: %s", util.StripControl(w.AuthorName()))

	case "/clear", "/c":
		w.Clear()

	case "/stats", "/s":
		s.printStats()

	default:
		return true, NewUsageError("command", command, "unknown command (type /help for commands)")
	}
	return true, nil
}

func (s *ChatSession) exportTo(path string) error {
	raw, err := s.Widget.ExportConversation()
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Fprintln(s.Out, raw)
		return nil
	}
	if err := util.AtomicWriteFile(path, []byte(raw), 0644); err != nil {
		return err
	}
	s.notice("wrote %s (%s)", path, humanize.Bytes(uint64(len(raw))))
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, NewUsageError("message id", s, "must be a positive number")
	}
	return id, nil
}

// loadAttachment accepts a data URI or URL as is and turns a file path
// into a data URI.
func loadAttachment(ref string) (string, error) {
	if ref == "" {
		return "", NewUsageError("attachment", "", "/image needs a data URI or file")
	}
	if strings.HasPrefix(ref, "data:") || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref, nil
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		return "", err
	}
	return util.DataURI(data), nil
}

// =============================================================================
// DISPLAY FUNCTIONS
// =============================================================================

func (s *ChatSession) notice(format string, args ...any) {
	fmt.Fprintln(s.Out, DimStyle.Render(fmt.Sprintf(format, args...)))
}

func (s *ChatSession) printEditResult(t editsession.Target, msg model.Message, removed int) {
	d := diff.ForEdit(t.OriginalText, msg.Text)
	s.notice("edited #%d (%s)", msg.ID, d.Summary())
	if d.Changed() {
		fmt.Fprintln(s.Out, "  "+util.StripControl(d.Inline()))
	}
	if removed > 0 {
		s.notice("removed %d later %s", removed, english.PluralWord(removed, "message", ""))
	}
}

func (s *ChatSession) printWelcome() {
	fmt.Fprintln(s.Out, TitleStyle.Render(util.StripControl(s.Widget.Title())))
	fmt.Fprintln(s.Out, Separator(30))
	fmt.Fprintln(s.Out, DimStyle.Render("Type a message and press Enter. Commands: /help, /quit"))
	fmt.Fprintln(s.Out)
}

func (s *ChatSession) printHelp() {
	fmt.Fprintln(s.Out)
	fmt.Fprintln(s.Out, TitleStyle.Render("Available Commands"))
	fmt.Fprintln(s.Out, Separator(20))
	for _, c := range slashCommands {
		fmt.Fprintf(s.Out, "  %s  %s\n",
			CommandStyle.Render(util.PadRight(c.usage, 18)),
			DimStyle.Render(c.desc))
	}
	fmt.Fprintln(s.Out)
}

func (s *ChatSession) printStats() {
	msgs := s.Widget.Messages()
	byRole := map[model.Role]int{}
	var attachments int
	for _, m := range msgs {
		byRole[m.Role]++
		attachments += len(m.Attachment)
	}
	raw, _ := s.Widget.ExportConversation()

	fmt.Fprintln(s.Out)
	fmt.Fprintln(s.Out, TitleStyle.Render("Session Status"))
	fmt.Fprintln(s.Out, Separator(20))
	row := func(label, value string) {
		fmt.Fprintf(s.Out, "  %s %s\n", LabelStyle.Render(util.PadRight(label, 13)), ValueStyle.Render(value))
	}
	row("Title:", util.StripControl(s.Widget.Title()))
	row("Started:", humanize.Time(s.StartTime))
	row("Messages:", fmt.Sprintf("%d (%d you, %d assistant, %d system)",
		len(msgs), byRole[model.RoleUser], byRole[model.RoleAssistant], byRole[model.RoleSystem]))
	row("Attachments:", humanize.Bytes(uint64(attachments)))
	row("Export size:", humanize.Bytes(uint64(len(raw))))
	if len(msgs) > 0 {
		last := msgs[len(msgs)-1]
		row("Last:", fmt.Sprintf("#%d %s", last.ID, util.StripControl(last.Preview(40))))
	}
	if t, ok := s.Widget.Editing(); ok {
		row("Editing:", fmt.Sprintf("#%d", t.ID))
	}

	if summary, err := s.Metrics.Summary(); err == nil && len(summary) > 0 {
		fmt.Fprintln(s.Out)
		for _, line := range summary.Lines() {
			fmt.Fprintf(s.Out, "  %s\n", DimStyle.Render(line))
		}
	}
	fmt.Fprintln(s.Out)
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

type chatOptions struct {
	importPath string
	watch      bool
}

func newChatCommand(a *app) *cobra.Command {
	opts := &chatOptions{}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Example: `  chatwidget chat
  chatwidget chat --import chat.json --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runChat(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.importPath, "import", "", "Start from an exported conversation")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Re-import the --import file whenever it changes")
	return cmd
}

func (a *app) runChat(ctx context.Context, opts *chatOptions) error {
	if opts.watch && opts.importPath == "" {
		return NewUsageError("watch", "", "--watch needs --import FILE")
	}
	if !IsTTY() {
		return errors.New("stdin is not a terminal; chat needs an interactive terminal")
	}

	term := surface.NewTerminal(a.stdout, surface.TerminalOptions{
		Width:          ResolveWidth(a.cfg.UI.WordWrap),
		Profile:        GetColorProfile(),
		Dark:           ResolveDark(a.cfg.UI.Theme),
		Markdown:       a.cfg.Render.Markdown,
		ShowTimestamps: a.cfg.UI.ShowTimestamps,
	})
	var session *ChatSession
	w := a.newWidget(widget.Options{
		Surface:   term,
		Scheduler: surface.TimerScheduler{},
		Regenerate: func(msg model.Message) error {
			session.notice("regenerate requested for #%d; no model is connected", msg.ID)
			return nil
		},
		OnEditChange: func(state editsession.State, t editsession.Target) {
			if state == editsession.StateEditing {
				session.notice("editing #%d; enter the new text or /cancel", t.ID)
			}
		},
	})
	session = NewChatSession(w, a.metrics, a.stdout)

	if !a.quiet {
		session.printWelcome()
	}
	if opts.importPath != "" {
		raw, err := os.ReadFile(opts.importPath)
		if err != nil {
			return NewCommandError("chat", "read", err)
		}
		if err := w.ImportConversation(string(raw)); err != nil {
			return NewCommandError("chat", "import "+opts.importPath, err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if opts.watch {
		go func() {
			err := WatchImport(ctx, opts.importPath, DefaultWatchDebounce, func(raw []byte) {
				if err := w.ImportConversation(string(raw)); err == nil {
					session.notice("reloaded %s", opts.importPath)
				}
			})
			if err != nil {
				a.logger.Warn("WATCH_FAILED", "path", opts.importPath, "error", err)
			}
		}()
	}

	input := NewChatCLI()
	defer input.Close()

	for {
		line, err := input.ReadInput(session.Prompt(), session.TakePrefill())
		if err != nil {
			// Ctrl+C, Ctrl+D or a closed stdin all end the session
			fmt.Fprintln(a.stdout)
			return nil
		}
		more, err := session.HandleLine(line)
		if err != nil {
			fmt.Fprintf(a.stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		}
		if !more {
			return nil
		}
	}
}
