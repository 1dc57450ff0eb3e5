// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package widget

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/chatwidget/internal/config"
	"github.com/jeranaias/chatwidget/internal/export"
	"github.com/jeranaias/chatwidget/internal/logging"
	"github.com/jeranaias/chatwidget/internal/model"
	"github.com/jeranaias/chatwidget/internal/render"
	"github.com/jeranaias/chatwidget/internal/render/texmath"
	"github.com/jeranaias/chatwidget/internal/session"
	"github.com/jeranaias/chatwidget/internal/storage"
	"github.com/jeranaias/chatwidget/internal/surface"
	"github.com/jeranaias/chatwidget/internal/telemetry"
)

// =============================================================================
// OPTIONS
// =============================================================================

// RegenerateFunc is called by Regenerate with the message to answer again.
type RegenerateFunc func(msg model.Message) error

// Options configures a Widget. Every field is optional.
type Options struct {
	// Config supplies names, layouts and delays. Default: config.Default()
	Config *config.Config

	// Surface receives the rendered messages. Default: an HTMLSurface
	Surface surface.Surface

	// Capabilities returns the render collaborators available right now.
	// Default: CapabilitiesFromConfig(Config.Render)
	Capabilities func() render.Capabilities

	// Scheduler runs the deferred math retry and the post-import re-render.
	// Default: surface.TimerScheduler
	Scheduler surface.Scheduler

	// Now supplies message timestamps and the export date. Default: time.Now
	Now func() time.Time

	Logger  *slog.Logger
	Metrics *telemetry.Metrics

	// Regenerate is invoked by Regenerate. Default: none, the call only logs.
	Regenerate RegenerateFunc

	// OnEditChange is told about every edit session transition, for hosts
	// that show an edit banner.
	OnEditChange func(session.State, session.Target)
}

// CapabilitiesFromConfig builds the render collaborators enabled by cfg.
func CapabilitiesFromConfig(cfg config.RenderConfig) render.Capabilities {
	var caps render.Capabilities
	if cfg.Markdown {
		caps.Formatter = render.NewMarkdownFormatter(render.MarkdownOptions{HardWraps: cfg.HardWraps})
	}
	if cfg.Math {
		caps.Math = texmath.New()
	}
	return caps
}

// =============================================================================
// WIDGET
// =============================================================================

// Widget is one chat conversation bound to one surface. It owns the message
// log and the edit slot; hosts drive it through the methods below and never
// touch messages directly.
type Widget struct {
	mu sync.Mutex

	id        string
	cfg       *config.Config
	store     *storage.MessageStore
	editor    *session.Editor
	projector *surface.Projector
	scheduler surface.Scheduler
	now       func() time.Time
	logger    *slog.Logger
	metrics   *telemetry.Metrics
	regen     RegenerateFunc

	title          string
	author         string
	visible        bool
	received       bool
	lastMessage    string
	lastAttachment string
}

// New creates a widget with an empty conversation.
func New(opts Options) *Widget {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Surface == nil {
		opts.Surface = surface.NewHTMLSurface()
	}
	if opts.Capabilities == nil {
		caps := CapabilitiesFromConfig(opts.Config.Render)
		opts.Capabilities = func() render.Capabilities { return caps }
	}
	if opts.Scheduler == nil {
		opts.Scheduler = surface.TimerScheduler{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	id := uuid.NewString()
	logger := logging.ForWidget(opts.Logger, id)

	renderer := render.NewRenderer(logger)
	renderer.OnDegraded(opts.Metrics.RenderDegraded)

	store := storage.NewMessageStore()
	w := &Widget{
		id:        id,
		cfg:       opts.Config,
		store:     store,
		editor:    session.NewEditor(store),
		scheduler: opts.Scheduler,
		now:       opts.Now,
		logger:    logger,
		metrics:   opts.Metrics,
		regen:     opts.Regenerate,
		title:     opts.Config.Widget.Title,
		author:    opts.Config.Widget.AuthorName,
		visible:   true,
	}
	if opts.OnEditChange != nil {
		w.editor.SetOnChange(opts.OnEditChange)
	}
	w.projector = surface.NewProjector(opts.Surface, surface.ProjectorOptions{
		Renderer:     renderer,
		Capabilities: opts.Capabilities,
		Scheduler:    opts.Scheduler,
		RetryDelay:   opts.Config.Render.MathRetryDelay(),
		Lookup:       store.FindByID,
		OnMathRetry:  opts.Metrics.MathRetry,
		Logger:       logger,
	})
	return w
}

// ID returns the instance id used to correlate log lines.
func (w *Widget) ID() string {
	return w.id
}

// Surface returns the surface the widget renders to.
func (w *Widget) Surface() surface.Surface {
	return w.projector.Surface()
}

// Messages returns a copy of the message log.
func (w *Widget) Messages() []model.Message {
	return w.store.Snapshot()
}

// Conversation returns a copy of the conversation.
func (w *Widget) Conversation() *model.Conversation {
	return &model.Conversation{Title: w.Title(), Messages: w.store.Snapshot()}
}

// =============================================================================
// SENDING
// =============================================================================

// Send appends a user message with the current author name. It raises the
// message-received flag and updates LastMessage.
func (w *Widget) Send(text string) (model.Message, error) {
	return w.sendUser(text, "")
}

// SendAsAssistant appends an assistant message.
func (w *Widget) SendAsAssistant(text string) (model.Message, error) {
	return w.append(model.RoleAssistant, text, "", w.cfg.Widget.AssistantName)
}

// SendSystem appends a system message.
func (w *Widget) SendSystem(text string) (model.Message, error) {
	return w.append(model.RoleSystem, text, "", w.cfg.Widget.SystemName)
}

// SendWithAttachment appends a system message carrying an image reference.
func (w *Widget) SendWithAttachment(text, ref string) (model.Message, error) {
	return w.append(model.RoleSystem, text, ref, w.cfg.Widget.SystemName)
}

// Submit is the composer path: it commits the active edit if there is one
// and otherwise sends a user message with an optional attachment. While
// editing, an empty ref keeps the pending attachment like CommitEdit does;
// ClearEditAttachment removes it.
func (w *Widget) Submit(text, ref string) (model.Message, error) {
	if target, ok := w.editor.Target(); ok {
		if ref == "" {
			ref = target.PendingAttachment
		}
		return w.CommitEditWithAttachment(strings.TrimSpace(text), ref)
	}
	return w.sendUser(text, ref)
}

func (w *Widget) sendUser(text, ref string) (model.Message, error) {
	text = strings.TrimSpace(text)
	msg, err := w.append(model.RoleUser, text, ref, w.AuthorName())
	if err != nil {
		return msg, err
	}

	w.mu.Lock()
	w.received = true
	w.lastMessage = text
	if ref != "" {
		w.lastAttachment = ref
	}
	w.mu.Unlock()
	return msg, nil
}

func (w *Widget) append(role model.Role, text, ref, author string) (model.Message, error) {
	if strings.TrimSpace(text) == "" && ref == "" {
		return model.Message{}, model.ErrNothingToSend
	}

	msg := model.Message{
		Role:       role,
		Text:       text,
		Attachment: ref,
		Author:     author,
		CreatedAt:  w.now().Format(w.cfg.Widget.TimestampLayout),
	}
	msg.ID = w.store.Append(msg)
	w.projector.Mount(msg)

	w.metrics.MessageAdded(role.String())
	w.metrics.SetLogSize(w.store.Len())
	w.logger.Debug("MESSAGE_ADDED", "id", msg.ID, "role", role.String())
	return msg, nil
}

// ConsumeMessageReceivedFlag reports whether a user message arrived since
// the last call, and lowers the flag.
func (w *Widget) ConsumeMessageReceivedFlag() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	got := w.received
	w.received = false
	return got
}

// LastMessage returns the text of the last user message sent.
func (w *Widget) LastMessage() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastMessage
}

// LastAttachment returns the last attachment a user sent.
func (w *Widget) LastAttachment() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastAttachment
}

// =============================================================================
// EDITING
// =============================================================================

// BeginEdit starts editing the message with the given id. An edit already
// open on another message is abandoned.
func (w *Widget) BeginEdit(id int64) error {
	abandoned, err := w.editor.BeginEdit(id)
	if err != nil {
		return err
	}
	if abandoned {
		w.metrics.Edit(telemetry.EditAbandon)
		w.logger.Info("EDIT_ABANDONED", "next", id)
	}
	w.metrics.Edit(telemetry.EditBegin)
	return nil
}

// Editing returns the edit target, if any.
func (w *Widget) Editing() (session.Target, bool) {
	return w.editor.Target()
}

// SetEditAttachment replaces the attachment the next commit will write.
func (w *Widget) SetEditAttachment(ref string) error {
	return w.editor.SetPendingAttachment(ref)
}

// ClearEditAttachment makes the next commit remove the attachment.
func (w *Widget) ClearEditAttachment() error {
	return w.editor.ClearPendingAttachment()
}

// CommitEdit rewrites the edited message with text, keeping the pending
// attachment, and discards every later message.
func (w *Widget) CommitEdit(text string) (model.Message, error) {
	target, ok := w.editor.Target()
	if !ok {
		return model.Message{}, model.ErrNotEditing
	}
	return w.CommitEditWithAttachment(text, target.PendingAttachment)
}

// CommitEditWithAttachment rewrites the edited message with text and ref
// and discards every later message. An empty ref removes the attachment.
func (w *Widget) CommitEditWithAttachment(text, ref string) (model.Message, error) {
	res, err := w.editor.Commit(text, ref)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			w.logger.Warn("EDIT_TARGET_GONE", "error", err)
		}
		return model.Message{}, err
	}

	removed := make([]int64, len(res.Removed))
	for i, msg := range res.Removed {
		removed[i] = msg.ID
	}
	w.projector.Remove(removed...)
	w.projector.Update(res.Message)

	w.metrics.Edit(telemetry.EditCommit)
	w.metrics.SetLogSize(w.store.Len())
	w.logger.Info("EDIT_COMMITTED", "id", res.Message.ID, "truncated", len(removed))
	return res.Message, nil
}

// CancelEdit ends the edit without touching the conversation.
func (w *Widget) CancelEdit() {
	if w.editor.Cancel() {
		w.metrics.Edit(telemetry.EditCancel)
	}
}

// =============================================================================
// REACTIONS AND MESSAGE ACTIONS
// =============================================================================

// React toggles glyph on the message with the given id.
func (w *Widget) React(id int64, glyph model.Reaction) (model.Message, error) {
	msg, err := w.store.ToggleReaction(id, glyph)
	if err != nil {
		return model.Message{}, err
	}
	w.projector.Update(msg)
	w.metrics.Reaction(msg.Reaction != model.ReactionNone)
	return msg, nil
}

// Copy returns the text of a message for the clipboard.
func (w *Widget) Copy(id int64) (string, error) {
	msg, ok := w.store.FindByID(id)
	if !ok {
		return "", fmt.Errorf("copy %d: %w", id, model.ErrNotFound)
	}
	return msg.Text, nil
}

// Select highlights a message on surfaces that support it.
func (w *Widget) Select(id int64) error {
	if _, ok := w.store.FindByID(id); !ok {
		return fmt.Errorf("select %d: %w", id, model.ErrNotFound)
	}
	w.projector.Select(id)
	return nil
}

// Regenerate asks the regenerate hook to answer a message again. Without a
// hook the request is only logged.
func (w *Widget) Regenerate(id int64) error {
	msg, ok := w.store.FindByID(id)
	if !ok {
		return fmt.Errorf("regenerate %d: %w", id, model.ErrNotFound)
	}
	w.logger.Info("REGENERATE_REQUESTED", "id", id)
	if w.regen == nil {
		return nil
	}
	if err := w.regen(msg); err != nil {
		return fmt.Errorf("regenerate %d: %w", id, err)
	}
	return nil
}

// =============================================================================
// EXPORT / IMPORT
// =============================================================================

// ExportConversation serializes the conversation in the interchange format.
func (w *Widget) ExportConversation() (string, error) {
	raw, err := export.Marshal(w.Conversation(), w.now())
	if err != nil {
		return "", err
	}
	w.metrics.Export("json")
	return string(raw), nil
}

// Share returns the export string handed to share targets.
func (w *Widget) Share() (string, error) {
	return w.ExportConversation()
}

// ImportConversation replaces the conversation with raw. On error the
// conversation is left as it was. Every message is re-rendered once more
// after the import delay, for math that was not ready on the first pass.
func (w *Widget) ImportConversation(raw string) error {
	conv, err := export.Unmarshal([]byte(raw), w.Title())
	if err != nil {
		w.metrics.Import(telemetry.ImportFailed)
		w.logger.Warn("IMPORT_FAILED", "error", err)
		return err
	}
	if err := w.store.LoadFrom(conv.Messages); err != nil {
		w.metrics.Import(telemetry.ImportFailed)
		w.logger.Warn("IMPORT_FAILED", "error", err)
		return fmt.Errorf("%w: %v", model.ErrFormat, err)
	}

	w.editor.Cancel()
	w.mu.Lock()
	w.title = conv.Title
	w.mu.Unlock()

	w.projector.ClearAll()
	for _, msg := range conv.Messages {
		w.projector.Mount(msg)
	}
	w.scheduler.AfterFunc(w.cfg.Render.ImportRerenderDelay(), func() {
		msgs := w.store.Snapshot()
		ids := make([]int64, len(msgs))
		for i, msg := range msgs {
			ids[i] = msg.ID
		}
		w.projector.RerenderAll(ids)
	})

	w.metrics.Import(telemetry.ImportOK)
	w.metrics.SetLogSize(len(conv.Messages))
	w.logger.Info("IMPORTED", "messages", len(conv.Messages), "title", conv.Title)
	return nil
}

// =============================================================================
// CONVERSATION STATE
// =============================================================================

// Clear removes every message and resets the last-message reporters.
func (w *Widget) Clear() {
	w.editor.Cancel()
	w.store.Clear()
	w.projector.ClearAll()

	w.mu.Lock()
	w.lastMessage = ""
	w.lastAttachment = ""
	w.mu.Unlock()

	w.metrics.SetLogSize(0)
	w.logger.Info("CLEARED")
}

// SetTitle sets the conversation title.
func (w *Widget) SetTitle(title string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.title = norm.NFC.String(title)
}

// Title returns the conversation title.
func (w *Widget) Title() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.title
}

// SetAuthorName sets the name attached to later user messages.
func (w *Widget) SetAuthorName(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.author = norm.NFC.String(name)
}

// AuthorName returns the name attached to user messages.
func (w *Widget) AuthorName() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.author
}

// =============================================================================
// VISIBILITY
// =============================================================================

// Show makes the widget visible.
func (w *Widget) Show() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.visible = true
}

// Hide hides the widget. The conversation is kept.
func (w *Widget) Hide() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.visible = false
}

// Visible reports whether the widget is shown.
func (w *Widget) Visible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

// DeleteAndClose clears the conversation and hides the widget.
func (w *Widget) DeleteAndClose() {
	w.Clear()
	w.Hide()
}
