package core

import (
	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

// CommandDeps bundles the cross-cutting collaborators every command needs
// beyond its policy: an injectable clock (so retry/backoff timing is
// deterministic under test), a metrics sink, and a logger. Any field left
// zero falls back to the same defaults newBaseCommand already applies
// (spec.md §9: dependencies are passed in, never reached for globally).
type CommandDeps struct {
	Clock   clock.Clock
	Metrics *Metrics
	Log     *logrus.Logger
}

// commandDepsOf recovers the deps a baseCommand was built with, so a
// command's public Execute wrapper can pass them along to a secondary
// command it issues internally (e.g. write's Txn monitor upkeep) without
// the caller repeating itself.
func commandDepsOf(b *baseCommand) CommandDeps {
	return CommandDeps{Clock: b.clock, Metrics: b.metrics, Log: b.log}
}
