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

package database

import (
	"time"

	"github.com/blinklabs-io/guild/database/models"
)

// GetRewardDailyTotal returns the running total for a user, category and day,
// or nil if nothing has accrued yet
func (d *Database) GetRewardDailyTotal(
	userID string,
	category string,
	day string,
	txn *Txn,
) (*models.RewardDailyTotal, error) {
	return d.metadata.GetRewardDailyTotal(userID, category, day, txn.Metadata())
}

func (d *Database) InsertRewardDailyTotal(
	total *models.RewardDailyTotal,
	txn *Txn,
) (bool, error) {
	return d.metadata.InsertRewardDailyTotal(total, txn.Metadata())
}

// SwapRewardDailyTotal sets the total only if it still equals oldTotal
func (d *Database) SwapRewardDailyTotal(
	id uint,
	oldTotal uint64,
	newTotal uint64,
	txn *Txn,
) (bool, error) {
	return d.metadata.SwapRewardDailyTotal(id, oldTotal, newTotal, txn.Metadata())
}

func (d *Database) AddRewardEntry(entry *models.RewardEntry, txn *Txn) error {
	return d.metadata.AddRewardEntry(entry, txn.Metadata())
}

func (d *Database) GetRewardEntries(
	userID string,
	limit int,
	txn *Txn,
) ([]models.RewardEntry, error) {
	return d.metadata.GetRewardEntries(userID, limit, txn.Metadata())
}

func (d *Database) SumRewardEntries(
	userID string,
	category string,
	day string,
	txn *Txn,
) (uint64, error) {
	return d.metadata.SumRewardEntries(userID, category, day, txn.Metadata())
}

func (d *Database) GetRewardTotals(
	userID string,
	txn *Txn,
) ([]models.RewardTotal, error) {
	return d.metadata.GetRewardTotals(userID, txn.Metadata())
}

// ReserveRewardEntries attaches unclaimed pending entries to a claim and
// returns how many were reserved
func (d *Database) ReserveRewardEntries(
	userID string,
	rewardType string,
	claimID string,
	txn *Txn,
) (int64, error) {
	return d.metadata.ReserveRewardEntries(
		userID,
		rewardType,
		claimID,
		txn.Metadata(),
	)
}

func (d *Database) SumReservedRewardEntries(
	claimID string,
	txn *Txn,
) (uint64, error) {
	return d.metadata.SumReservedRewardEntries(claimID, txn.Metadata())
}

func (d *Database) SettleRewardEntries(
	claimID string,
	claimedAt time.Time,
	txn *Txn,
) (int64, error) {
	return d.metadata.SettleRewardEntries(claimID, claimedAt, txn.Metadata())
}

func (d *Database) ReleaseRewardEntries(claimID string, txn *Txn) (int64, error) {
	return d.metadata.ReleaseRewardEntries(claimID, txn.Metadata())
}

func (d *Database) AddRewardClaim(claim *models.RewardClaim, txn *Txn) error {
	return d.metadata.AddRewardClaim(claim, txn.Metadata())
}

// GetRewardClaim returns the claim or models.ErrRewardClaimNotFound
func (d *Database) GetRewardClaim(
	id string,
	txn *Txn,
) (*models.RewardClaim, error) {
	claim, err := d.metadata.GetRewardClaim(id, txn.Metadata())
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, models.ErrRewardClaimNotFound
	}
	return claim, nil
}

func (d *Database) UpdateRewardClaim(
	id string,
	fromStatus string,
	values map[string]any,
	txn *Txn,
) (bool, error) {
	return d.metadata.UpdateRewardClaim(id, fromStatus, values, txn.Metadata())
}
