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

package main

import (
	"errors"

	"github.com/blinklabs-io/guild/internal/node"
	"github.com/spf13/cobra"
)

func closeExpiredCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "close-expired",
		Short: "Close every proposal whose voting window has ended and print the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromCommand(cmd)
			if err != nil {
				return err
			}
			logger := commonRun(cfg)
			engine, err := node.NewEngine(cfg, logger, nil)
			if err != nil {
				return err
			}
			results, closeErr := engine.CloseExpired(cmd.Context())
			if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
				closeErr = errors.Join(closeErr, err)
			}
			return errors.Join(closeErr, engine.Stop())
		},
	}
	return cmd
}
