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

// InsertGrant claims the single grant slot for a proposal. It reports false if
// a grant already exists
func (d *Database) InsertGrant(grant *models.Grant, txn *Txn) (bool, error) {
	return d.metadata.InsertGrant(grant, txn.Metadata())
}

// GetGrant returns the grant for a proposal or models.ErrGrantNotFound
func (d *Database) GetGrant(proposalID uint, txn *Txn) (*models.Grant, error) {
	grant, err := d.metadata.GetGrant(proposalID, txn.Metadata())
	if err != nil {
		return nil, err
	}
	if grant == nil {
		return nil, models.ErrGrantNotFound
	}
	return grant, nil
}

func (d *Database) ListGrants(status string, txn *Txn) ([]models.Grant, error) {
	return d.metadata.ListGrants(status, txn.Metadata())
}

func (d *Database) UpdateGrantStatus(
	proposalID uint,
	fromStatus string,
	values map[string]any,
	txn *Txn,
) (bool, error) {
	return d.metadata.UpdateGrantStatus(
		proposalID,
		fromStatus,
		values,
		txn.Metadata(),
	)
}
