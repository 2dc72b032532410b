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
	"time"

	"github.com/blinklabs-io/guild/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetRewardDailyTotal returns the running total for a user, category and
// day. Returns nil if nothing has accrued yet.
func (s *Store) GetRewardDailyTotal(
	userID string,
	category string,
	day string,
	txn *gorm.DB,
) (*models.RewardDailyTotal, error) {
	var total models.RewardDailyTotal
	if result := s.resolveDB(txn).Where(
		"user_id = ? AND category = ? AND day = ?",
		userID,
		category,
		day,
	).First(&total); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &total, nil
}

// InsertRewardDailyTotal creates the running total row. It returns false
// if a concurrent accrual created it first.
func (s *Store) InsertRewardDailyTotal(
	total *models.RewardDailyTotal,
	txn *gorm.DB,
) (bool, error) {
	onConflict := clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "category"},
			{Name: "day"},
		},
		DoNothing: true,
	}
	result := s.resolveDB(txn).Clauses(onConflict).Create(total)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// SwapRewardDailyTotal sets a running total to newTotal only if it still
// equals oldTotal
func (s *Store) SwapRewardDailyTotal(
	id uint,
	oldTotal uint64,
	newTotal uint64,
	txn *gorm.DB,
) (bool, error) {
	result := s.resolveDB(txn).Model(&models.RewardDailyTotal{}).
		Where("id = ? AND total = ?", id, oldTotal).
		UpdateColumn("total", newTotal)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// AddRewardEntry appends a reward entry
func (s *Store) AddRewardEntry(
	entry *models.RewardEntry,
	txn *gorm.DB,
) error {
	if result := s.resolveDB(txn).Create(entry); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetRewardEntries returns a user's entries, newest first
func (s *Store) GetRewardEntries(
	userID string,
	limit int,
	txn *gorm.DB,
) ([]models.RewardEntry, error) {
	var entries []models.RewardEntry
	query := s.resolveDB(txn).Where("user_id = ?", userID).Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if result := query.Find(&entries); result.Error != nil {
		return nil, result.Error
	}
	return entries, nil
}

// SumRewardEntries returns the total amount of a user's entries in a cap
// category for one day
func (s *Store) SumRewardEntries(
	userID string,
	category string,
	day string,
	txn *gorm.DB,
) (uint64, error) {
	var sum uint64
	if result := s.resolveDB(txn).Model(&models.RewardEntry{}).
		Select("COALESCE(SUM(amount), 0)").
		Where(
			"user_id = ? AND category = ? AND accrual_day = ?",
			userID,
			category,
			day,
		).
		Scan(&sum); result.Error != nil {
		return 0, result.Error
	}
	return sum, nil
}

// GetRewardTotals aggregates a user's entry amounts by type and status
func (s *Store) GetRewardTotals(
	userID string,
	txn *gorm.DB,
) ([]models.RewardTotal, error) {
	var totals []models.RewardTotal
	if result := s.resolveDB(txn).Model(&models.RewardEntry{}).
		Select("reward_type, status, SUM(amount) AS amount").
		Where("user_id = ?", userID).
		Group("reward_type, status").
		Order("reward_type, status").
		Scan(&totals); result.Error != nil {
		return nil, result.Error
	}
	return totals, nil
}

// ReserveRewardEntries attaches the user's unreserved pending entries to a
// claim. An empty rewardType matches every type. It returns the number of
// entries reserved.
func (s *Store) ReserveRewardEntries(
	userID string,
	rewardType string,
	claimID string,
	txn *gorm.DB,
) (int64, error) {
	query := s.resolveDB(txn).Model(&models.RewardEntry{}).
		Where(
			"user_id = ? AND status = ? AND claim_id IS NULL",
			userID,
			models.RewardStatusPending,
		)
	if rewardType != "" {
		query = query.Where("reward_type = ?", rewardType)
	}
	result := query.UpdateColumn("claim_id", claimID)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// SumReservedRewardEntries returns the total amount reserved by a claim
func (s *Store) SumReservedRewardEntries(
	claimID string,
	txn *gorm.DB,
) (uint64, error) {
	var sum uint64
	if result := s.resolveDB(txn).Model(&models.RewardEntry{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("claim_id = ? AND status = ?", claimID, models.RewardStatusPending).
		Scan(&sum); result.Error != nil {
		return 0, result.Error
	}
	return sum, nil
}

// SettleRewardEntries marks every entry reserved by a claim as claimed
func (s *Store) SettleRewardEntries(
	claimID string,
	claimedAt time.Time,
	txn *gorm.DB,
) (int64, error) {
	result := s.resolveDB(txn).Model(&models.RewardEntry{}).
		Where("claim_id = ? AND status = ?", claimID, models.RewardStatusPending).
		UpdateColumns(map[string]any{
			"status":     models.RewardStatusClaimed,
			"claimed_at": claimedAt,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ReleaseRewardEntries detaches pending entries from a failed claim
func (s *Store) ReleaseRewardEntries(
	claimID string,
	txn *gorm.DB,
) (int64, error) {
	result := s.resolveDB(txn).Model(&models.RewardEntry{}).
		Where("claim_id = ? AND status = ?", claimID, models.RewardStatusPending).
		UpdateColumn("claim_id", gorm.Expr("NULL"))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// AddRewardClaim records a new claim
func (s *Store) AddRewardClaim(
	claim *models.RewardClaim,
	txn *gorm.DB,
) error {
	if result := s.resolveDB(txn).Create(claim); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetRewardClaim retrieves a claim by ID. Returns nil if it does not exist.
func (s *Store) GetRewardClaim(
	id string,
	txn *gorm.DB,
) (*models.RewardClaim, error) {
	var claim models.RewardClaim
	if result := s.resolveDB(txn).Where("id = ?", id).First(&claim); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &claim, nil
}

// UpdateRewardClaim applies values to a claim still in the given status
func (s *Store) UpdateRewardClaim(
	id string,
	fromStatus string,
	values map[string]any,
	txn *gorm.DB,
) (bool, error) {
	result := s.resolveDB(txn).Model(&models.RewardClaim{}).
		Where("id = ? AND status = ?", id, fromStatus).
		UpdateColumns(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
