// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package budget

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtract_BulletList(t *testing.T) {
	text := `Here is your plan:

- Food: $120,000
- Transport: 40,000
- Savings - 30,000.50

Stick to it.`

	items := Extract(text)
	require.Len(t, items, 3)

	require.Equal(t, "Food", items[0].Name)
	require.Equal(t, 120000.0, items[0].Value)
	require.Equal(t, "Transport", items[1].Name)
	require.Equal(t, 40000.0, items[1].Value)
	require.Equal(t, "Savings", items[2].Name)
	require.Equal(t, 30000.50, items[2].Value)
}

func TestExtract_RequiresTwoItems(t *testing.T) {
	require.Nil(t, Extract("- Food: $500"), "a single line is not a breakdown")
	require.Nil(t, Extract("no budget lines here at all"))
}

func TestExtract_RejectsLongNamesAndZeroValues(t *testing.T) {
	text := `- This is a very long sentence that is not a category name: $100
- Food: $0
- Rent: $200
- Books: $50`

	items := Extract(text)
	require.Len(t, items, 2)
	for _, it := range items {
		require.Greater(t, it.Value, 0.0, "zero value item leaked through: %+v", it)
	}
}

func TestExtract_BulletVariants(t *testing.T) {
	items := Extract("• Food — 100\n* Rent | 250")
	require.Len(t, items, 2)
}

func TestTotal(t *testing.T) {
	items := []Item{{Name: "a", Value: 1.5}, {Name: "b", Value: 2.5}}
	require.Equal(t, 4.0, Total(items))
}
