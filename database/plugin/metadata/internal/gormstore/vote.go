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

// InsertVote records a vote. The unique (proposal_id, wallet) index decides
// races between concurrent inserts: the return value is false when a vote
// for the pair already exists.
func (s *Store) InsertVote(
	vote *models.Vote,
	txn *gorm.DB,
) (bool, error) {
	onConflict := clause.OnConflict{
		Columns: []clause.Column{
			{Name: "proposal_id"},
			{Name: "wallet"},
		},
		DoNothing: true,
	}
	result := s.resolveDB(txn).Clauses(onConflict).Create(vote)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// GetVote retrieves the vote cast by a wallet on a proposal. Returns nil if
// the wallet has not voted.
func (s *Store) GetVote(
	proposalID uint,
	wallet string,
	txn *gorm.DB,
) (*models.Vote, error) {
	var vote models.Vote
	if result := s.resolveDB(txn).Where(
		"proposal_id = ? AND wallet = ?",
		proposalID,
		wallet,
	).First(&vote); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &vote, nil
}

// GetVotes retrieves all votes for a proposal in cast order
func (s *Store) GetVotes(
	proposalID uint,
	txn *gorm.DB,
) ([]models.Vote, error) {
	var votes []models.Vote
	if result := s.resolveDB(txn).Where(
		"proposal_id = ?",
		proposalID,
	).Order("id").Find(&votes); result.Error != nil {
		return nil, result.Error
	}
	return votes, nil
}
