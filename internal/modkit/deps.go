// Package modkit provides module wiring and core deps
package modkit

import (
	"github.com/BCM-Neurosurgery/video-sync/internal/modkit/repokit"
	"github.com/BCM-Neurosurgery/video-sync/internal/platform/config"
	"github.com/BCM-Neurosurgery/video-sync/internal/platform/logger"
	"github.com/BCM-Neurosurgery/video-sync/internal/platform/store"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse
}
