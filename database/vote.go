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
	"github.com/blinklabs-io/guild/database/models"
)

// InsertVote records a vote. It reports false if the wallet already voted on
// the proposal
func (d *Database) InsertVote(vote *models.Vote, txn *Txn) (bool, error) {
	return d.metadata.InsertVote(vote, txn.Metadata())
}

// GetVote returns the vote cast by a wallet, or nil
func (d *Database) GetVote(
	proposalID uint,
	wallet string,
	txn *Txn,
) (*models.Vote, error) {
	return d.metadata.GetVote(proposalID, wallet, txn.Metadata())
}

func (d *Database) GetVotes(proposalID uint, txn *Txn) ([]models.Vote, error) {
	return d.metadata.GetVotes(proposalID, txn.Metadata())
}
