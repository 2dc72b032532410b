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

// AddGovernanceLog appends an audit record
func (s *Store) AddGovernanceLog(
	entry *models.GovernanceLog,
	txn *gorm.DB,
) error {
	if result := s.resolveDB(txn).Create(entry); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetGovernanceLogs returns the audit records for a proposal in order
func (s *Store) GetGovernanceLogs(
	proposalID uint,
	txn *gorm.DB,
) ([]models.GovernanceLog, error) {
	var logs []models.GovernanceLog
	if result := s.resolveDB(txn).Where(
		"proposal_id = ?",
		proposalID,
	).Order("id").Find(&logs); result.Error != nil {
		return nil, result.Error
	}
	return logs, nil
}

// GetGovernanceParamOverride returns the stored parameter overrides, or nil
func (s *Store) GetGovernanceParamOverride(
	txn *gorm.DB,
) (*models.GovernanceParamOverride, error) {
	var override models.GovernanceParamOverride
	if result := s.resolveDB(txn).First(
		&override,
		models.GovernanceParamOverrideID,
	); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &override, nil
}

// SetGovernanceParamOverride creates or replaces the parameter overrides
func (s *Store) SetGovernanceParamOverride(
	override *models.GovernanceParamOverride,
	txn *gorm.DB,
) error {
	override.ID = models.GovernanceParamOverrideID
	onConflict := clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"min_proposal_stake",
			"quorum_pct",
			"threshold_pct",
			"voting_period_days",
			"veto_enabled",
			"max_vote_weight",
			"proposal_id",
			"updated_at",
		}),
	}
	if result := s.resolveDB(txn).Clauses(onConflict).Create(override); result.Error != nil {
		return result.Error
	}
	return nil
}

// AddPendingUpgrade records an approved upgrade
func (s *Store) AddPendingUpgrade(
	upgrade *models.PendingUpgrade,
	txn *gorm.DB,
) error {
	if result := s.resolveDB(txn).Create(upgrade); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetPendingUpgrades returns all recorded upgrades in order
func (s *Store) GetPendingUpgrades(
	txn *gorm.DB,
) ([]models.PendingUpgrade, error) {
	var upgrades []models.PendingUpgrade
	if result := s.resolveDB(txn).Order("id").Find(&upgrades); result.Error != nil {
		return nil, result.Error
	}
	return upgrades, nil
}
