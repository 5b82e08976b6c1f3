// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/smartassist/internal/gateway"
	"github.com/jeranaias/smartassist/internal/mode"
	"github.com/jeranaias/smartassist/internal/model"
	"github.com/jeranaias/smartassist/internal/storage"
	"github.com/jeranaias/smartassist/internal/ui/styles"
)

// =============================================================================
// STATE
// =============================================================================

// State represents the chat lifecycle state.
type State int

const (
	// StateReady accepts input and dispatches sends.
	StateReady State = iota
	// StateStreaming has an in-flight assistant response. Sends are
	// rejected until the stream ends or is cancelled.
	StateStreaming
)

// maxInputLength caps the composer so a pasted novel cannot blow the
// relay's request size limit.
const maxInputLength = 4000

// overlayInputMode says what the conversation overlay's text input is
// currently editing.
type overlayInputMode int

const (
	overlayInputNone overlayInputMode = iota
	overlayInputSearch
	overlayInputRename
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view. It owns the conversation
// state machine: exactly one stream is in flight at a time, every stream
// message is tagged with the assistant message ID it belongs to, and
// messages tagged with a stale ID are dropped.
type Model struct {
	theme *styles.Theme
	keys  KeyMap
	help  help.Model

	state        State
	currentMode  mode.Mode
	conversation *model.Conversation

	client *gateway.Client
	store  *storage.ConversationStore
	runner *StreamRunner

	// Streaming state. streamBuf and cancelMgr are pointers because
	// Bubble Tea copies the model on every Update.
	streamingMsgID string
	streamBuf      *StreamingBuffer
	cancelMgr      *cancelManager
	thinking       bool

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	width  int
	height int
	ready  bool

	lastError  *ErrorMsg
	statusText string

	showModePicker bool
	pickerIndex    int

	showConversations bool
	convList          []storage.ConversationMeta
	convIndex         int
	convInput         textinput.Model
	convInputMode     overlayInputMode
	convFilter        string

	showHelp bool
}

// New creates the chat model. The store may be nil, in which case the chat
// works without persistence.
func New(client *gateway.Client, store *storage.ConversationStore, startMode mode.Mode) Model {
	theme := styles.NewTheme()

	input := textinput.New()
	input.Placeholder = "Ask anything..."
	input.Prompt = "> "
	input.PromptStyle = theme.InputPrompt
	input.TextStyle = theme.InputText
	input.PlaceholderStyle = theme.InputPlaceholder
	input.CharLimit = maxInputLength
	input.Focus()

	convInput := textinput.New()
	convInput.CharLimit = 100
	convInput.Width = 40
	convInput.PromptStyle = theme.InputPrompt
	convInput.TextStyle = theme.InputText
	convInput.PlaceholderStyle = theme.InputPlaceholder

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = theme.Spinner

	return Model{
		theme:        theme,
		keys:         DefaultKeyMap(),
		help:         help.New(),
		state:        StateReady,
		currentMode:  startMode,
		conversation: model.NewConversation(startMode),
		client:       client,
		store:        store,
		runner:       NewStreamRunner(nil, client),
		streamBuf:    NewStreamingBuffer(),
		cancelMgr:    newCancelManager(),
		input:        input,
		convInput:    convInput,
		spinner:      sp,
	}
}

// SetProgram wires the running Bubble Tea program into the stream runner so
// goroutine-side callbacks can post messages back to the update loop.
func (m Model) SetProgram(p *tea.Program) {
	m.runner.SetProgram(p)
}

// Mode returns the active assistant mode.
func (m Model) Mode() mode.Mode {
	return m.currentMode
}

// Conversation returns the active conversation.
func (m Model) Conversation() *model.Conversation {
	return m.conversation
}

// Init starts the cursor blink and pings the relay in the background.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, checkRelayCmd(m.client))
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.thinking {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case StreamStartMsg:
		return m.handleStreamStart(msg)

	case StreamTokenMsg:
		return m.handleStreamToken(msg)

	case StreamTickMsg:
		return m.handleStreamTick(msg)

	case StreamCompleteMsg:
		return m.handleStreamComplete(msg)

	case StreamErrorMsg:
		return m.handleStreamError(msg)

	case ConversationSavedMsg:
		return m.handleConversationSaved(msg)

	case ConversationListMsg:
		if msg.Err != nil {
			m.showConversations = false
			m.lastError = errorBanner(msg.Err)
			return m, nil
		}
		m.convList = msg.Conversations
		if m.convIndex >= len(m.convList) {
			m.convIndex = len(m.convList) - 1
		}
		if m.convIndex < 0 {
			m.convIndex = 0
		}
		return m, nil

	case ConversationLoadedMsg:
		return m.handleConversationLoaded(msg)

	case CopyCompleteMsg:
		if msg.Err != nil {
			m.statusText = "Copy failed"
		} else {
			m.statusText = "Copied to clipboard"
		}
		return m, statusExpireCmd()

	case ErrorMsg:
		m.lastError = &msg
		return m, nil

	case ErrorDismissMsg:
		m.lastError = nil
		m.input.Focus()
		return m, textinput.Blink

	case StatusMsg:
		m.statusText = msg.Text
		return m, statusExpireCmd()

	case StatusExpireMsg:
		m.statusText = ""
		return m, nil

	default:
		var cmds []tea.Cmd
		if m.state == StateReady && !m.overlayOpen() {
			var inputCmd tea.Cmd
			m.input, inputCmd = m.input.Update(msg)
			cmds = append(cmds, inputCmd)
		}
		var vpCmd tea.Cmd
		m.viewport, vpCmd = m.viewport.Update(msg)
		cmds = append(cmds, vpCmd)
		return m, tea.Batch(cmds...)
	}
}

// overlayOpen reports whether a modal overlay is capturing input.
func (m Model) overlayOpen() bool {
	return m.showModePicker || m.showConversations || m.showHelp
}

// =============================================================================
// RESIZE
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	headerHeight := 3
	inputHeight := 3
	statusHeight := 1
	vpHeight := msg.Height - headerHeight - inputHeight - statusHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = vpHeight
	}

	m.input.Width = msg.Width - 6
	m.help.Width = msg.Width

	m.updateViewport()
	m.viewport.GotoBottom()
	return m, nil
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// During a stream, esc and ctrl+c both mean "stop the response";
	// ctrl+q remains a hard quit.
	if m.state == StateStreaming && !m.overlayOpen() {
		if key.Matches(msg, m.keys.Cancel) || msg.String() == "ctrl+c" {
			return m.cancelStream()
		}
	}

	if key.Matches(msg, m.keys.Quit) {
		m.cancelMgr.cancel()
		return m, tea.Quit
	}

	if m.showHelp {
		if key.Matches(msg, m.keys.Cancel) || key.Matches(msg, m.keys.Help) {
			m.showHelp = false
		}
		return m, nil
	}

	if m.showModePicker {
		return m.handleModePickerKey(msg)
	}

	if m.showConversations {
		return m.handleConversationsKey(msg)
	}

	if m.lastError != nil && key.Matches(msg, m.keys.Cancel) {
		m.lastError = nil
		return m, nil
	}

	if m.state == StateStreaming {
		// Scrolling stays live while streaming.
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.handleSubmit()

	case key.Matches(msg, m.keys.NewChat):
		// Resetting an already-fresh conversation is a no-op.
		if m.conversation.IsFresh() {
			return m, nil
		}
		return m.resetConversation(m.currentMode)

	case key.Matches(msg, m.keys.Regenerate):
		return m.handleRegenerate()

	case key.Matches(msg, m.keys.ModePicker):
		m.showModePicker = true
		m.pickerIndex = modeIndex(m.currentMode.ID)
		return m, nil

	case key.Matches(msg, m.keys.Conversations):
		m.showConversations = true
		m.convList = nil
		m.convIndex = 0
		m.convFilter = ""
		m.convInputMode = overlayInputNone
		m.convInput.Reset()
		return m, listConversationsCmd(m.store)

	case key.Matches(msg, m.keys.CopyReply):
		return m.handleCopyReply()

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown),
		key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	// Digits 1-4 on a fresh conversation with an empty composer inject the
	// corresponding suggestion chip into the input for editing.
	if m.conversation.IsFresh() && m.input.Value() == "" {
		if n, err := strconv.Atoi(msg.String()); err == nil && n >= 1 && n <= len(m.currentMode.Suggestions) {
			m.input.SetValue(m.currentMode.Suggestions[n-1])
			m.input.CursorEnd()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleModePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	modes := mode.List()
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.pickerIndex > 0 {
			m.pickerIndex--
		}
	case key.Matches(msg, m.keys.Down):
		if m.pickerIndex < len(modes)-1 {
			m.pickerIndex++
		}
	case key.Matches(msg, m.keys.Submit):
		m.showModePicker = false
		chosen := modes[m.pickerIndex]
		if chosen.ID != m.currentMode.ID {
			// Switching modes starts over: history from another
			// persona would poison the new system prompt.
			return m.resetConversation(chosen)
		}
	case key.Matches(msg, m.keys.Cancel):
		m.showModePicker = false
	}
	return m, nil
}

func (m Model) handleConversationsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.convInputMode != overlayInputNone {
		return m.handleOverlayInputKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.convIndex > 0 {
			m.convIndex--
		}
	case key.Matches(msg, m.keys.Down):
		if m.convIndex < len(m.convList)-1 {
			m.convIndex++
		}
	case key.Matches(msg, m.keys.Submit):
		m.showConversations = false
		if m.convIndex < len(m.convList) {
			return m, loadConversationCmd(m.store, m.convList[m.convIndex].ID)
		}
	case key.Matches(msg, m.keys.Delete):
		if m.convIndex < len(m.convList) {
			id := m.convList[m.convIndex].ID
			// Deleting the loaded conversation orphans its ID; drop it
			// so the next send creates a fresh record.
			if id == m.conversation.ID {
				m.conversation.ID = ""
			}
			return m, deleteConversationCmd(m.store, id)
		}
	case key.Matches(msg, m.keys.Search):
		m.convInputMode = overlayInputSearch
		m.convInput.Reset()
		m.convInput.Prompt = "/ "
		m.convInput.Placeholder = "search messages"
		m.convInput.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Rename):
		if m.convIndex < len(m.convList) {
			m.convInputMode = overlayInputRename
			m.convInput.Prompt = "> "
			m.convInput.Placeholder = ""
			m.convInput.SetValue(m.convList[m.convIndex].Title)
			m.convInput.CursorEnd()
			m.convInput.Focus()
			return m, textinput.Blink
		}
	case key.Matches(msg, m.keys.Cancel):
		// esc clears an active search filter before it closes the overlay.
		if m.convFilter != "" {
			m.convFilter = ""
			m.convIndex = 0
			return m, listConversationsCmd(m.store)
		}
		m.showConversations = false
	}
	return m, nil
}

// handleOverlayInputKey edits the overlay's text input while a search or
// rename is in progress. Enter commits, esc abandons.
func (m Model) handleOverlayInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEscape:
		m.convInputMode = overlayInputNone
		m.convInput.Blur()

	case tea.KeyEnter:
		text := strings.TrimSpace(m.convInput.Value())
		editMode := m.convInputMode
		m.convInputMode = overlayInputNone
		m.convInput.Blur()

		switch editMode {
		case overlayInputSearch:
			m.convFilter = text
			m.convIndex = 0
			return m, searchConversationsCmd(m.store, text)
		case overlayInputRename:
			if text == "" || m.convIndex >= len(m.convList) {
				return m, nil
			}
			id := m.convList[m.convIndex].ID
			if id == m.conversation.ID {
				m.conversation.SetTitle(text)
			}
			return m, renameConversationCmd(m.store, id, text)
		}

	default:
		var cmd tea.Cmd
		m.convInput, cmd = m.convInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

// =============================================================================
// SEND / REGENERATE / RESET
// =============================================================================

func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	m.input.Reset()
	return m.sendText(text)
}

// sendText appends a user message and starts a stream for the reply. The
// user message is persisted immediately; a storage failure is logged and
// swallowed so the send always proceeds.
func (m Model) sendText(text string) (tea.Model, tea.Cmd) {
	if m.state == StateStreaming {
		return m, nil
	}

	userMsg := m.conversation.AddUserMessage(text)

	var persistCmd tea.Cmd
	if m.conversation.ID == "" {
		persistCmd = saveConversationCmd(m.store, m.conversation)
	} else {
		persistCmd = appendMessageCmd(m.store, m.conversation.ID, userMsg)
	}

	next, streamCmd := m.beginStream()
	return next, tea.Batch(persistCmd, streamCmd)
}

// handleRegenerate discards the last assistant reply and replays the most
// recent user turn against upstream.
func (m Model) handleRegenerate() (tea.Model, tea.Cmd) {
	if m.conversation.TruncateAfterLastUser() == nil {
		return m, nil
	}
	return m.beginStream()
}

// beginStream snapshots the upstream history, adds a streaming placeholder,
// and launches the relay stream on a goroutine. The history snapshot is
// taken via ToGatewayMessages, which excludes the greeting, streaming
// placeholders, and failed messages.
func (m Model) beginStream() (Model, tea.Cmd) {
	req := gateway.ChatRequest{
		Mode:     string(m.conversation.Mode),
		Messages: m.conversation.ToGatewayMessages(),
	}

	placeholder := m.conversation.AddAssistantMessage()
	m.streamingMsgID = placeholder.ID
	m.streamBuf.Reset()
	m.state = StateStreaming
	m.thinking = true
	m.lastError = nil
	m.input.Blur()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelMgr.set(cancel)
	go m.runner.Run(ctx, req, placeholder.ID)

	m.updateViewport()
	m.viewport.GotoBottom()
	return m, tea.Batch(m.spinner.Tick, streamTickCmd())
}

// resetConversation replaces the conversation with a fresh one for the
// given mode. Any in-flight stream is cancelled silently; stored history is
// left untouched.
func (m Model) resetConversation(newMode mode.Mode) (tea.Model, tea.Cmd) {
	m.cancelMgr.cancel()
	m.streamBuf.Reset()
	m.streamingMsgID = ""
	m.state = StateReady
	m.thinking = false
	m.lastError = nil

	m.currentMode = newMode
	m.conversation = model.NewConversation(newMode)
	m.input.Reset()
	m.input.Focus()
	m.updateViewport()
	m.viewport.GotoTop()
	return m, textinput.Blink
}

// cancelStream stops the in-flight stream. Buffered tokens are flushed into
// the message first; a partial reply is kept and persisted, an empty
// placeholder is dropped. No terminal stream message will arrive, so all
// state transitions happen here.
func (m Model) cancelStream() (tea.Model, tea.Cmd) {
	m.cancelMgr.cancel()

	if content, ok := m.streamBuf.ForceFlush(); ok {
		m.conversation.AppendToLast(content)
	}

	var persistCmd tea.Cmd
	if msg := m.conversation.GetMessageByID(m.streamingMsgID); msg != nil {
		if msg.IsEmpty() {
			m.conversation.RemoveMessage(msg.ID)
		} else {
			m.conversation.FinalizeLast(nil)
			persistCmd = saveConversationCmd(m.store, m.conversation)
		}
	}

	m.state = StateReady
	m.thinking = false
	m.streamingMsgID = ""
	m.statusText = "Response stopped"
	m.input.Focus()
	m.updateViewport()
	return m, tea.Batch(persistCmd, statusExpireCmd(), textinput.Blink)
}

// =============================================================================
// STREAM HANDLERS
// =============================================================================

func (m Model) handleStreamStart(msg StreamStartMsg) (tea.Model, tea.Cmd) {
	if msg.MessageID != m.streamingMsgID {
		return m, nil
	}
	m.thinking = true
	return m, nil
}

func (m Model) handleStreamToken(msg StreamTokenMsg) (tea.Model, tea.Cmd) {
	if msg.MessageID != m.streamingMsgID {
		return m, nil
	}
	if msg.IsFirst {
		m.thinking = false
	}
	m.streamBuf.Write(msg.Token)
	return m, nil
}

// handleStreamTick drains the token buffer into the conversation at up to
// 30fps so rendering cost stays flat regardless of token rate.
func (m Model) handleStreamTick(StreamTickMsg) (tea.Model, tea.Cmd) {
	if m.state != StateStreaming {
		return m, nil
	}
	if content, ok := m.streamBuf.Flush(); ok {
		m.conversation.AppendToLast(content)
		m.updateViewport()
		m.viewport.GotoBottom()
	}
	return m, streamTickCmd()
}

func (m Model) handleStreamComplete(msg StreamCompleteMsg) (tea.Model, tea.Cmd) {
	if msg.MessageID != m.streamingMsgID {
		return m, nil
	}

	if content, ok := m.streamBuf.ForceFlush(); ok {
		m.conversation.AppendToLast(content)
	}

	// An upstream that closes cleanly without a single delta leaves
	// nothing worth showing or storing.
	var persistCmd tea.Cmd
	if done := m.conversation.GetMessageByID(m.streamingMsgID); done != nil {
		done.FinalizeStream(msg.Stats)
		if done.IsEmpty() {
			m.conversation.RemoveMessage(done.ID)
		} else {
			persistCmd = saveConversationCmd(m.store, m.conversation)
		}
	}

	m.state = StateReady
	m.thinking = false
	m.streamingMsgID = ""
	m.cancelMgr.cancel()
	m.input.Focus()
	m.updateViewport()
	m.viewport.GotoBottom()
	return m, tea.Batch(persistCmd, textinput.Blink)
}

// handleStreamError finalizes whatever partial content arrived, marks the
// message failed so it never goes upstream or to disk, and shows an error
// banner mapped from the failure kind.
func (m Model) handleStreamError(msg StreamErrorMsg) (tea.Model, tea.Cmd) {
	if msg.MessageID != m.streamingMsgID {
		return m, nil
	}

	if content, ok := m.streamBuf.ForceFlush(); ok {
		m.conversation.AppendToLast(content)
	}
	if failed := m.conversation.GetMessageByID(m.streamingMsgID); failed != nil {
		failed.FinalizeStream(nil)
		if failed.IsEmpty() {
			m.conversation.RemoveMessage(failed.ID)
		} else {
			failed.Failed = true
		}
	}

	m.state = StateReady
	m.thinking = false
	m.streamingMsgID = ""
	m.cancelMgr.cancel()
	m.lastError = errorBanner(msg.Err)
	m.input.Focus()
	m.updateViewport()
	return m, textinput.Blink
}

// =============================================================================
// PERSISTENCE HANDLERS
// =============================================================================

func (m Model) handleConversationSaved(msg ConversationSavedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.statusText = "Save failed"
		return m, statusExpireCmd()
	}
	// Adopt the ID storage assigned on first save.
	if m.conversation.ID == "" && msg.ID != "" {
		m.conversation.ID = msg.ID
	}
	return m, nil
}

func (m Model) handleConversationLoaded(msg ConversationLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.lastError = errorBanner(msg.Err)
		return m, nil
	}

	m.cancelMgr.cancel()
	m.streamBuf.Reset()
	m.streamingMsgID = ""
	m.state = StateReady
	m.thinking = false
	m.lastError = nil

	m.conversation = msg.Conversation
	if loaded, err := mode.Get(m.conversation.Mode); err == nil {
		m.currentMode = loaded
	}
	m.input.Reset()
	m.input.Focus()
	m.updateViewport()
	m.viewport.GotoBottom()
	return m, textinput.Blink
}

// =============================================================================
// CLIPBOARD
// =============================================================================

// handleCopyReply copies the most recent completed assistant reply.
func (m Model) handleCopyReply() (tea.Model, tea.Cmd) {
	for i := len(m.conversation.Messages) - 1; i >= 0; i-- {
		msg := m.conversation.Messages[i]
		if msg.Role == model.RoleAssistant && !msg.Greeting && !msg.IsStreaming && !msg.Failed && !msg.IsEmpty() {
			return m, copyToClipboardCmd(msg.Content)
		}
	}
	m.statusText = "Nothing to copy"
	return m, statusExpireCmd()
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

// errorBanner maps gateway and storage failures to user-facing banners.
// Upstream detail never appears here: the relay already logged it.
func errorBanner(err error) *ErrorMsg {
	var banner ErrorMsg

	switch {
	case err == nil:
		return nil

	case errors.Is(err, gateway.ErrRateLimited):
		banner = NewErrorMsgWithSuggestions(
			"Rate Limited",
			"Too many requests right now.",
			[]string{"Wait a moment, then press ctrl+r to retry"},
		)

	case errors.Is(err, gateway.ErrPaymentRequired):
		banner = NewErrorMsgWithSuggestions(
			"Credits Exhausted",
			"The AI workspace is out of credits.",
			[]string{"Add credits to your workspace, then retry"},
		)

	case errors.Is(err, gateway.ErrNotConfigured):
		banner = NewErrorMsgWithSuggestions(
			"Relay Not Configured",
			"No relay URL is set.",
			[]string{
				"Start the relay: smartassist serve",
				"Or set SMARTASSIST_RELAY_URL",
			},
		)

	case errors.Is(err, storage.ErrConversationNotFound):
		banner = NewErrorMsg("Conversation Not Found", "That conversation no longer exists on disk.")

	default:
		var upstream *gateway.UpstreamError
		var network *gateway.NetworkError
		switch {
		case errors.As(err, &upstream):
			banner = NewErrorMsgWithSuggestions(
				"AI Service Error",
				"The AI service returned an error.",
				[]string{"Press ctrl+r to retry"},
			)
		case errors.As(err, &network):
			banner = NewErrorMsgWithSuggestions(
				"Connection Failed",
				"Could not reach the relay.",
				[]string{
					"Check that the relay is running: smartassist serve",
					"Verify SMARTASSIST_RELAY_URL",
				},
			)
		default:
			banner = NewErrorMsg("Error", err.Error())
		}
	}

	return &banner
}

// modeIndex returns the position of a mode in the registry's stable order.
func modeIndex(id mode.ID) int {
	for i, m := range mode.List() {
		if m.ID == id {
			return i
		}
	}
	return 0
}
