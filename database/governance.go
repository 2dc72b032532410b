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

func (d *Database) AddGovernanceLog(entry *models.GovernanceLog, txn *Txn) error {
	return d.metadata.AddGovernanceLog(entry, txn.Metadata())
}

func (d *Database) GetGovernanceLogs(
	proposalID uint,
	txn *Txn,
) ([]models.GovernanceLog, error) {
	return d.metadata.GetGovernanceLogs(proposalID, txn.Metadata())
}

// GetGovernanceParamOverride returns parameter overrides applied by executed
// proposals, or nil
func (d *Database) GetGovernanceParamOverride(
	txn *Txn,
) (*models.GovernanceParamOverride, error) {
	return d.metadata.GetGovernanceParamOverride(txn.Metadata())
}

func (d *Database) SetGovernanceParamOverride(
	override *models.GovernanceParamOverride,
	txn *Txn,
) error {
	return d.metadata.SetGovernanceParamOverride(override, txn.Metadata())
}

func (d *Database) AddPendingUpgrade(upgrade *models.PendingUpgrade, txn *Txn) error {
	return d.metadata.AddPendingUpgrade(upgrade, txn.Metadata())
}

func (d *Database) GetPendingUpgrades(txn *Txn) ([]models.PendingUpgrade, error) {
	return d.metadata.GetPendingUpgrades(txn.Metadata())
}
