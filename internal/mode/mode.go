// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package mode defines the assistant personas available in SmartAssist.
//
// Each mode carries a label, a description, a greeting shown at the top of a
// fresh conversation, and a set of suggested prompts. The greeting is
// presentation-only: it is never sent upstream and never persisted.
package mode

import (
	"errors"
	"fmt"
)

// ID identifies an assistant mode.
type ID string

// Known mode identifiers.
const (
	Budget      ID = "budget"
	Health      ID = "health"
	School      ID = "school"
	Agriculture ID = "agriculture"
)

// ErrUnknownMode is returned when a mode ID is not in the registry.
var ErrUnknownMode = errors.New("unknown assistant mode")

// Mode describes a single assistant persona.
type Mode struct {
	ID          ID
	Label       string
	Description string
	Greeting    string
	Suggestions [4]string
}

// order is the stable display order for List.
var order = []ID{Budget, Health, School, Agriculture}

var registry = map[ID]Mode{
	Budget: {
		ID:          Budget,
		Label:       "Budget Planner",
		Description: "Structured financial planning and pocket money optimization",
		Greeting: "Welcome to SmartAssist — Budget Planner. Provide your total pocket money " +
			"and term duration, and I will create a structured spending and savings plan " +
			"covering essentials, events, and emergency reserves.",
		Suggestions: [4]string{
			"Create a structured budget for 200,000 UGX over 2 months",
			"How should I divide my pocket money for savings and spending?",
			"Weekly spending plan for school canteen",
			"How to build a small emergency fund during the term",
		},
	},
	Health: {
		ID:          Health,
		Label:       "Health Assistant",
		Description: "General wellness, nutrition, and lifestyle guidance",
		Greeting: "Welcome to SmartAssist — Health Assistant. I provide general wellness " +
			"guidance including nutrition, exercise, sleep optimization, and healthy habit " +
			"planning. How can I assist you today?",
		Suggestions: [4]string{
			"Design a simple weekly fitness plan",
			"Balanced meal plan for a student",
			"How to improve sleep quality naturally",
			"Daily hydration recommendations",
		},
	},
	School: {
		ID:          School,
		Label:       "Academic Support",
		Description: "Structured explanations, study planning, and homework support",
		Greeting: "Welcome to SmartAssist — Academic Support. I can help explain concepts, " +
			"structure essays, solve problems step by step, and create efficient study " +
			"plans. What topic are you working on?",
		Suggestions: [4]string{
			"Explain photosynthesis in simple terms",
			"Create a structured study plan for final exams",
			"Help outline an argumentative essay",
			"Solve this algebra problem step by step",
		},
	},
	Agriculture: {
		ID:          Agriculture,
		Label:       "Agriculture Advisor",
		Description: "Crop planning, soil management, and sustainable farming advice",
		Greeting: "Welcome to SmartAssist — Agriculture Advisor. I provide guidance on crop " +
			"selection, soil improvement, planting schedules, and pest management. What crop " +
			"or farming challenge would you like assistance with?",
		Suggestions: [4]string{
			"Best crops for semi-arid regions",
			"How to improve soil fertility sustainably",
			"Integrated pest management methods",
			"Optimal planting season for tomatoes",
		},
	},
}

// Default returns the mode used when none has been selected.
func Default() Mode {
	return registry[Budget]
}

// Get returns the mode for the given ID.
// Returns ErrUnknownMode if the ID is not registered.
func Get(id ID) (Mode, error) {
	m, ok := registry[id]
	if !ok {
		return Mode{}, fmt.Errorf("%w: %q", ErrUnknownMode, id)
	}
	return m, nil
}

// IsValid reports whether the given ID is a registered mode.
func IsValid(id ID) bool {
	_, ok := registry[id]
	return ok
}

// List returns all modes in stable display order.
func List() []Mode {
	out := make([]Mode, 0, len(order))
	for _, id := range order {
		out = append(out, registry[id])
	}
	return out
}
