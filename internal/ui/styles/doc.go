// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the smartassist TUI.

This package defines the color palette and the Theme struct used throughout
the application. All colors use Lip Gloss AdaptiveColor for automatic
light/dark terminal detection.

# Color System (colors.go)

## Primary Accent Colors

  - Purple - Primary accent for assistant messages and selections
  - Cyan - Brand color for commands and user highlights
  - Emerald - Success states and the budget mode accent
  - Amber - Warnings and the agriculture mode accent
  - Rose - Errors and the health mode accent

## Semantic Colors

Message bubbles and UI elements use semantic color tokens:

	UserBubbleBg       - Background for user messages
	AssistantBubbleBg  - Background for assistant messages
	GreetingBubbleBg   - Background for the mode greeting

## Text Colors

Hierarchical text color system:

	TextPrimary   - Main content text
	TextSecondary - Supporting text
	TextMuted     - De-emphasized text
	TextInverse   - Text on colored backgrounds

# Theme System (theme.go)

The Theme struct provides runtime color adaptation and all component styles:

	theme := styles.NewTheme()
	if theme.IsDark {
		// Dark terminal detected
	}
	accent := theme.ModeAccent(mode.Health)

# Usage Example

	import "github.com/jeranaias/smartassist/internal/ui/styles"

	headerStyle := lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		Foreground(styles.TextPrimary)
*/
package styles
