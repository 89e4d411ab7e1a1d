// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_entity

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Metadata keys carried on the dispatch job. PhoneNumber is the only
// mandatory key; everything else defaults to empty / process defaults.
const (
	KeyParticipantName     = "participant_name"
	KeyPhoneNumber         = "phone_number"
	KeyTrialName           = "trial_name"
	KeyTrialDescription    = "trial_description"
	KeyEligibilityCriteria = "eligibility_criteria"
	KeyCompensationInfo    = "compensation_info"
	KeyContactInfo         = "contact_info"
	KeyAdditionalContext   = "additional_context"
	KeySipTrunkId          = "sip_trunk_id"
	KeyCallerId            = "caller_id"
)

// TrialData is the per-call context handed from dispatch time to the running
// session. It is immutable for the session lifetime and consumed read-only.
type TrialData struct {
	ParticipantName     string `json:"participant_name,omitempty"`
	PhoneNumber         string `json:"phone_number"`
	TrialName           string `json:"trial_name,omitempty"`
	TrialDescription    string `json:"trial_description,omitempty"`
	EligibilityCriteria string `json:"eligibility_criteria,omitempty"`
	CompensationInfo    string `json:"compensation_info,omitempty"`
	ContactInfo         string `json:"contact_info,omitempty"`
	AdditionalContext   string `json:"additional_context,omitempty"`

	// Per-call SIP overrides; take precedence over process defaults.
	SipTrunkId string `json:"sip_trunk_id,omitempty"`
	CallerId   string `json:"caller_id,omitempty"`
}

// ParseTrialData decodes dispatch job metadata.
func ParseTrialData(metadata string) (*TrialData, error) {
	if strings.TrimSpace(metadata) == "" {
		return nil, fmt.Errorf("job metadata is empty")
	}
	var td TrialData
	if err := json.Unmarshal([]byte(metadata), &td); err != nil {
		return nil, fmt.Errorf("failed to parse job metadata: %w", err)
	}
	return &td, nil
}

// Encode serializes the trial data for dispatch job metadata.
func (td *TrialData) Encode() (string, error) {
	raw, err := json.Marshal(td)
	if err != nil {
		return "", fmt.Errorf("failed to encode trial data: %w", err)
	}
	return string(raw), nil
}

// PrimaryCondition returns the first segment of a delimiter-separated trial
// name, so the greeting references a single condition naturally
// ("Chronic Kidney Disease & Oncology" → "Chronic Kidney Disease").
func (td *TrialData) PrimaryCondition() string {
	name := td.TrialName
	if strings.TrimSpace(name) == "" {
		return ""
	}
	if i := strings.Index(name, "&"); i >= 0 {
		return strings.TrimSpace(name[:i])
	}
	return strings.TrimSpace(name)
}

// DisplayName returns the participant name or a neutral fallback.
func (td *TrialData) DisplayName() string {
	if strings.TrimSpace(td.ParticipantName) == "" {
		return "there"
	}
	return td.ParticipantName
}
