// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat implements the Bubble Tea chat view and its conversation state
machine.

The model has two states: ready and streaming. A send appends the user
message, persists it (storage failures are logged and swallowed so a broken
disk never blocks sending), creates a streaming assistant placeholder, and
launches the relay stream on a goroutine via StreamRunner. Every stream
message carries the placeholder's message ID; messages whose ID does not
match the current streaming ID are discarded, which makes late deltas from
a cancelled or superseded stream harmless.

Tokens do not hit the viewport one at a time. They accumulate in a
StreamingBuffer and are drained into the conversation by a 30fps tick, so
rendering cost stays flat regardless of upstream token rate.

Cancellation is cooperative and silent: the key handler invokes the stored
context cancel func, flushes buffered tokens, keeps a non-empty partial
reply (persisted) or drops an empty placeholder, and returns to ready. The
cancelled stream sends no terminal message.

# Key Types

  - Model: the Bubble Tea model; owns conversation, input, viewport, overlays
  - StreamRunner: goroutine-side bridge from gateway callbacks to tea messages
  - StreamingBuffer: token batching between goroutine and update loop

# Usage

	m := chat.New(client, store, mode.Default())
	p := tea.NewProgram(m, tea.WithAltScreen())
	m.SetProgram(p)
	_, err := p.Run()
*/
package chat
