// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package budget extracts budget line items from assistant replies.
//
// Budget Planner responses often contain bullet lists of the form
// "- Category: $1,200"; this package recognizes them so the UI can render
// an inline breakdown chart.
package budget

import (
	"regexp"
	"strconv"
	"strings"
)

// Item is a single extracted budget line.
type Item struct {
	Name  string
	Value float64
}

// MinItems is the minimum number of recognized lines required before a
// reply is treated as a budget breakdown.
const MinItems = 2

// maxNameLen rejects prose that happens to match the pattern.
const maxNameLen = 30

// linePattern matches "- Category: $1,200" style bullet lines. The bullet
// marker, separator, and currency sign are all optional variants.
var linePattern = regexp.MustCompile(`[-•|*]\s*([A-Za-z\s&/]+)[:\-—|]+\s*\$?([\d,]+(?:\.\d{2})?)`)

// Extract scans text for budget line items. Returns nil unless at least
// MinItems lines are recognized.
func Extract(text string) []Item {
	var items []Item

	for _, line := range strings.Split(text, "\n") {
		m := linePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		name := strings.TrimSpace(m[1])
		if name == "" || len(name) >= maxNameLen {
			continue
		}

		raw := strings.ReplaceAll(m[2], ",", "")
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil || value <= 0 {
			continue
		}

		items = append(items, Item{Name: name, Value: value})
	}

	if len(items) < MinItems {
		return nil
	}
	return items
}

// Total sums the extracted item values.
func Total(items []Item) float64 {
	var total float64
	for _, it := range items {
		total += it.Value
	}
	return total
}
