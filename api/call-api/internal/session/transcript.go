// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_session

import "strings"

// nonSubstantialPhrases are minimal acknowledgements that never count as a
// substantial utterance regardless of punctuation-free word count.
var nonSubstantialPhrases = map[string]struct{}{
	"hello?": {},
	"hello":  {},
	"yes?":   {},
	"hi":     {},
	"yeah":   {},
}

// SubstantialUtterance reports whether a finalized transcript counts as a
// substantial response: more than minWords words and not a bare minimal
// acknowledgement. The first substantial utterance is what flips the
// participant to "Contacted" even if the call later drops.
//
// Note the rule is purely lexical: "no thank you" is three words and not
// deny-listed, so it counts. Tighten minWords or the deny-list per
// deployment if that matters.
func SubstantialUtterance(text string, minWords int) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if len(strings.Fields(trimmed)) <= minWords {
		return false
	}
	if _, ok := nonSubstantialPhrases[strings.ToLower(trimmed)]; ok {
		return false
	}
	return true
}
