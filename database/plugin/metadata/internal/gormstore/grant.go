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

	"github.com/blinklabs-io/guild/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InsertGrant claims the execution slot for a proposal. It returns false
// when a grant row for the proposal already exists.
func (s *Store) InsertGrant(
	grant *models.Grant,
	txn *gorm.DB,
) (bool, error) {
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "proposal_id"}},
		DoNothing: true,
	}
	result := s.resolveDB(txn).Clauses(onConflict).Create(grant)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// GetGrant retrieves the grant for a proposal. Returns nil if none exists.
func (s *Store) GetGrant(
	proposalID uint,
	txn *gorm.DB,
) (*models.Grant, error) {
	var grant models.Grant
	if result := s.resolveDB(txn).Where(
		"proposal_id = ?",
		proposalID,
	).First(&grant); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &grant, nil
}

// ListGrants returns grants, optionally limited to one status
func (s *Store) ListGrants(
	status string,
	txn *gorm.DB,
) ([]models.Grant, error) {
	var grants []models.Grant
	query := s.resolveDB(txn).Model(&models.Grant{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if result := query.Order("id").Find(&grants); result.Error != nil {
		return nil, result.Error
	}
	return grants, nil
}

// UpdateGrantStatus moves a grant from one status to another, applying the
// extra values. It returns false if the grant was not in the expected status.
func (s *Store) UpdateGrantStatus(
	proposalID uint,
	fromStatus string,
	values map[string]any,
	txn *gorm.DB,
) (bool, error) {
	result := s.resolveDB(txn).Model(&models.Grant{}).
		Where("proposal_id = ? AND status = ?", proposalID, fromStatus).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
