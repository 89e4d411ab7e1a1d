// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstantialUtterance(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"empty", "", false},
		{"whitespace only", "   ", false},
		{"single word", "yes", false},
		{"two words at threshold", "yes please", false},
		{"three words", "yes please do", true},
		{"deny-listed hello", "hello", false},
		{"deny-listed hello question", "Hello?", false},
		{"deny-listed yeah", "Yeah", false},
		{"deny-listed yes question", "yes?", false},
		{"substantial question", "What is this trial about exactly", true},
		{"lexical rule counts a refusal", "no thank you", true},
		{"padded whitespace", "  tell me more please  ", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SubstantialUtterance(tt.text, 2))
		})
	}
}

func TestSubstantialUtteranceThreshold(t *testing.T) {
	// A higher threshold swallows longer acknowledgements.
	assert.False(t, SubstantialUtterance("yes please do", 3))
	assert.True(t, SubstantialUtterance("yes please do go on", 3))
}
