// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_contactstore

import "time"

// Participant status values.
const (
	StatusNotContacted = "Not Contacted"
	StatusContacted    = "Contacted"
	StatusInterested   = "Interested"
	StatusDeclined     = "Declined"
)

// ContactRecord is a persisted trial-participant row keyed by phone number.
// Upstream imports entered phone numbers in several formats (full E.164,
// E.164 without "+", bare last-10-digits), which is why UpdateStatus matches
// with a format fallback instead of a single canonical equality.
type ContactRecord struct {
	Id            uint64     `json:"id" gorm:"type:bigint;primaryKey;<-:create"`
	Name          string     `json:"name" gorm:"column:name;type:varchar(200);not null;default:''"`
	Phone         string     `json:"phone" gorm:"column:phone;type:varchar(50);not null;index"`
	Status        string     `json:"status" gorm:"column:status;type:varchar(50);not null;default:'Not Contacted'"`
	LastContacted *time.Time `json:"lastContacted" gorm:"column:last_contacted;type:timestamp;default:null"`
	CreatedDate   time.Time  `json:"createdDate" gorm:"type:timestamp;not null;default:NOW();<-:create"`
}

func (ContactRecord) TableName() string {
	return "contact_records"
}

// Result reports the outcome of an UpdateStatus call. Phone always carries
// the canonical (normalized) form that was attempted first, regardless of
// which stored format actually matched.
type Result struct {
	Success       bool      `json:"success"`
	Phone         string    `json:"phone"`
	Status        string    `json:"status,omitempty"`
	LastContacted time.Time `json:"lastContacted,omitempty"`
	Message       string    `json:"message"`
}
