// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gormstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/blinklabs-io/guild/database/models"
	"gorm.io/gorm"
)

// CreateProposal inserts a new proposal and populates its ID
func (s *Store) CreateProposal(
	proposal *models.Proposal,
	txn *gorm.DB,
) error {
	if result := s.resolveDB(txn).Omit("Votes").Create(proposal); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetProposal retrieves a proposal by ID. Returns nil if it does not exist.
func (s *Store) GetProposal(
	id uint,
	txn *gorm.DB,
) (*models.Proposal, error) {
	var proposal models.Proposal
	if result := s.resolveDB(txn).First(&proposal, id); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &proposal, nil
}

// ListProposals returns proposals matching the filter, newest first
func (s *Store) ListProposals(
	filter models.ProposalFilter,
	txn *gorm.DB,
) ([]models.Proposal, error) {
	var proposals []models.Proposal
	query := s.resolveDB(txn).Model(&models.Proposal{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("proposal_type = ?", filter.Type)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if result := query.Order("id DESC").Find(&proposals); result.Error != nil {
		return nil, result.Error
	}
	return proposals, nil
}

// GetExpiredProposals returns active proposals whose voting window ended
// before the given time
func (s *Store) GetExpiredProposals(
	now time.Time,
	txn *gorm.DB,
) ([]models.Proposal, error) {
	var proposals []models.Proposal
	if result := s.resolveDB(txn).Where(
		"status = ? AND voting_end_at < ?",
		models.ProposalStatusActive,
		now,
	).Order("voting_end_at").Find(&proposals); result.Error != nil {
		return nil, result.Error
	}
	return proposals, nil
}

// AddProposalVotes atomically adds weight to the tally counter for the
// given choice. The increment only applies while the proposal is active
// and its voting window has not ended; the return value reports whether
// it was applied.
func (s *Store) AddProposalVotes(
	id uint,
	choice string,
	weight uint64,
	now time.Time,
	txn *gorm.DB,
) (bool, error) {
	column, ok := models.VoteCounterColumn(choice)
	if !ok {
		return false, fmt.Errorf("unknown vote choice: %s", choice)
	}
	result := s.resolveDB(txn).Model(&models.Proposal{}).
		Where(
			"id = ? AND status = ? AND voting_end_at >= ?",
			id,
			models.ProposalStatusActive,
			now,
		).
		UpdateColumn(column, gorm.Expr(column+" + ?", weight))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// UpdateProposal applies values to a proposal only if it still matches the
// given conditions. The return value reports whether a row was updated.
func (s *Store) UpdateProposal(
	id uint,
	conditions map[string]any,
	values map[string]any,
	txn *gorm.DB,
) (bool, error) {
	query := s.resolveDB(txn).Model(&models.Proposal{}).Where("id = ?", id)
	if len(conditions) > 0 {
		query = query.Where(conditions)
	}
	result := query.UpdateColumns(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
