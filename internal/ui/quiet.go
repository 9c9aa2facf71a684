package ui

import "github.com/bamsammich/forager/internal/stats"

// quietPresenter consumes events but produces no per-file output.
type quietPresenter struct {
	stats *stats.Collector
}

func (p *quietPresenter) Run(events <-chan Event) error {
	for range events {
		// Counters are written by the engine; presenters only read.
	}
	return nil
}

func (p *quietPresenter) Summary() string {
	return ""
}
