// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides shared helpers for file IO and string handling.
//
// # Key Functions
//
//   - AtomicWriteFile: crash-safe file writing with fsync and rename
//   - TruncateRunes: UTF-8 safe string truncation with ellipsis
//
// # Usage
//
//	title := util.TruncateRunes(firstMessage, 50)
//	err := util.AtomicWriteFile(path, data, 0644)
package util
