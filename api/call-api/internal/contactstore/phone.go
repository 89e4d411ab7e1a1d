// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_contactstore

import "strings"

// NormalizePhone converts a phone number in any textual format to canonical
// E.164: separators are stripped, and for numbers without a leading "+" a
// 10-digit number is assumed domestic (+1), an 11-digit number starting
// with the trunk prefix "1" gets "+" prepended, anything else gets "+"
// prepended as-is.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, c := range phone {
		if c >= '0' && c <= '9' || c == '+' {
			b.WriteRune(c)
		}
	}
	cleaned := b.String()

	if strings.HasPrefix(cleaned, "+") {
		return cleaned
	}
	if len(cleaned) == 10 {
		return "+1" + cleaned
	}
	if len(cleaned) == 11 && strings.HasPrefix(cleaned, "1") {
		return "+" + cleaned
	}
	return "+" + cleaned
}

// matchVariants returns the stored-format fallbacks tried against the
// database, in order: canonical, canonical without "+", last 10 digits.
func matchVariants(canonical string) []string {
	variants := []string{canonical, strings.TrimPrefix(canonical, "+")}
	digits := strings.TrimPrefix(canonical, "+")
	if len(digits) > 10 {
		variants = append(variants, digits[len(digits)-10:])
	}
	return variants
}
