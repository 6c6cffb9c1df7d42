// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/rs/zerolog"

	"gitlab.com/dyadchain/dyadd/corelog"
)

var log zerolog.Logger

func init() {
	log = corelog.Disabled
}

// UseLogger replaces the package logger.
func UseLogger(logger zerolog.Logger) {
	log = logger
}
