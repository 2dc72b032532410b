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

package models

import "time"

const (
	ReceiptKindGrant       = "grant"
	ReceiptKindRewardClaim = "reward_claim"
)

// Receipt records a completed token transfer. Receipts are stored in the blob
// store alongside the metadata commit that settles the transfer
type Receipt struct {
	Kind                 string    `json:"kind"`
	ReferenceID          string    `json:"referenceId"`
	Recipient            string    `json:"recipient"`
	Amount               uint64    `json:"amount"`
	TransactionSignature string    `json:"transactionSignature"`
	CreatedAt            time.Time `json:"createdAt"`
}
