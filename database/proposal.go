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

func (d *Database) CreateProposal(proposal *models.Proposal, txn *Txn) error {
	return d.metadata.CreateProposal(proposal, txn.Metadata())
}

// GetProposal returns the proposal with the given ID or
// models.ErrProposalNotFound
func (d *Database) GetProposal(id uint, txn *Txn) (*models.Proposal, error) {
	proposal, err := d.metadata.GetProposal(id, txn.Metadata())
	if err != nil {
		return nil, err
	}
	if proposal == nil {
		return nil, models.ErrProposalNotFound
	}
	return proposal, nil
}

func (d *Database) ListProposals(
	filter models.ProposalFilter,
	txn *Txn,
) ([]models.Proposal, error) {
	return d.metadata.ListProposals(filter, txn.Metadata())
}

// GetExpiredProposals returns active proposals whose voting window ended
// before now
func (d *Database) GetExpiredProposals(
	now time.Time,
	txn *Txn,
) ([]models.Proposal, error) {
	return d.metadata.GetExpiredProposals(now, txn.Metadata())
}

// AddProposalVotes adds weight to the counter for the given choice. It
// reports false when the proposal is no longer accepting votes
func (d *Database) AddProposalVotes(
	id uint,
	choice string,
	weight uint64,
	now time.Time,
	txn *Txn,
) (bool, error) {
	return d.metadata.AddProposalVotes(id, choice, weight, now, txn.Metadata())
}

// UpdateProposal applies values only when every condition column still
// matches. It reports whether the row was updated
func (d *Database) UpdateProposal(
	id uint,
	conditions map[string]any,
	values map[string]any,
	txn *Txn,
) (bool, error) {
	return d.metadata.UpdateProposal(id, conditions, values, txn.Metadata())
}
