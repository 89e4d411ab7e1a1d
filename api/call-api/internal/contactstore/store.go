// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_contactstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rapidaai/outreach/pkg/commons"
	"github.com/rapidaai/outreach/pkg/connectors"
	"gorm.io/gorm"
)

// Store provides status updates and lookups against participant records.
//
// "Not found" is a soft outcome (Result.Success=false, nil error): records
// are imported from external lists and a number missing from the table must
// not fail the call that dialed it. Errors are reserved for transport or
// database failures.
type Store interface {
	// UpdateStatus sets status and a fresh UTC last-contacted timestamp on
	// the record matching phoneNumber, trying each stored format variant in
	// order until one matches. Safe to retry; the caller is expected to
	// guard against duplicate invocations per call session.
	UpdateStatus(ctx context.Context, phoneNumber, status string) (*Result, error)

	// GetByPhone returns the record matching the canonical form of
	// phoneNumber, or nil when none exists.
	GetByPhone(ctx context.Context, phoneNumber string) (*ContactRecord, error)
}

type postgresStore struct {
	postgres connectors.PostgresConnector
	logger   commons.Logger
}

// NewStore creates a participant record store backed by Postgres.
func NewStore(postgres connectors.PostgresConnector, logger commons.Logger) Store {
	return &postgresStore{
		postgres: postgres,
		logger:   logger,
	}
}

func (s *postgresStore) UpdateStatus(ctx context.Context, phoneNumber, status string) (*Result, error) {
	canonical := NormalizePhone(phoneNumber)
	now := time.Now().UTC()

	updates := map[string]interface{}{
		"status":         status,
		"last_contacted": now,
	}

	db := s.postgres.DB(ctx)
	for _, variant := range matchVariants(canonical) {
		result := db.Model(&ContactRecord{}).
			Where("phone = ?", variant).
			Updates(updates)
		if result.Error != nil {
			return nil, fmt.Errorf("failed to update status for %s: %w", canonical, result.Error)
		}
		if result.RowsAffected > 0 {
			s.logger.Info("updated participant status",
				"phone", canonical, "matched", variant, "status", status, "rows", result.RowsAffected)
			return &Result{
				Success:       true,
				Phone:         canonical,
				Status:        status,
				LastContacted: now,
				Message:       fmt.Sprintf("Updated %d record(s)", result.RowsAffected),
			}, nil
		}
	}

	s.logger.Warn("no participant record found", "phone", canonical)
	return &Result{
		Success: false,
		Phone:   canonical,
		Message: fmt.Sprintf("No records found for phone number: %s", canonical),
	}, nil
}

func (s *postgresStore) GetByPhone(ctx context.Context, phoneNumber string) (*ContactRecord, error) {
	canonical := NormalizePhone(phoneNumber)

	var record ContactRecord
	err := s.postgres.DB(ctx).Where("phone = ?", canonical).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch participant %s: %w", canonical, err)
	}
	return &record, nil
}
