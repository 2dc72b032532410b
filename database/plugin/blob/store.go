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

package blob

import (
	"fmt"
	"log/slog"

	badgerplugin "github.com/blinklabs-io/guild/database/plugin/blob/badger"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// Plugin names
const (
	PluginBadger = "badger"
	PluginNone   = "none"
)

type BlobStore interface {
	// matches badger.DB
	Close() error
	NewTransaction(bool) *badger.Txn

	// Our specific functions
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(*badger.Txn, int64) error
}

// Config selects and configures a blob plugin
type Config struct {
	Logger         *slog.Logger
	PromRegistry   prometheus.Registerer
	Plugin         string
	DataDir        string
	BlockCacheSize uint64
	IndexCacheSize uint64
	DisableGc      bool
}

// New returns the blob store selected by the plugin name. A nil store is
// returned when blob storage is disabled
func New(cfg Config) (BlobStore, error) {
	switch cfg.Plugin {
	case "", PluginBadger:
		opts := []badgerplugin.BlobStoreBadgerOptionFunc{
			badgerplugin.WithDataDir(cfg.DataDir),
			badgerplugin.WithLogger(cfg.Logger),
			badgerplugin.WithPromRegistry(cfg.PromRegistry),
		}
		// Zero sizes keep the plugin defaults
		if cfg.BlockCacheSize > 0 {
			opts = append(opts, badgerplugin.WithBlockCacheSize(cfg.BlockCacheSize))
		}
		if cfg.IndexCacheSize > 0 {
			opts = append(opts, badgerplugin.WithIndexCacheSize(cfg.IndexCacheSize))
		}
		if cfg.DisableGc {
			opts = append(opts, badgerplugin.WithGc(false))
		}
		store, err := badgerplugin.New(opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	case PluginNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown blob plugin: %s", cfg.Plugin)
	}
}
