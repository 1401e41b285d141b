package services

import (
	"github.com/alimgiray/ghmirror/internal/gateway"
	"github.com/alimgiray/ghmirror/internal/syncer"
)

// EventSources resolves the incremental-sync source for a host mode from the registry
func EventSources(registry *gateway.Registry) syncer.EventSourceFunc {
	return func(enterprise bool) (syncer.EventSource, error) {
		gw, err := registry.For(enterprise)
		if err != nil {
			return nil, err
		}
		return gw, nil
	}
}

// HistorySources resolves the backfill source for a host mode from the registry
func HistorySources(registry *gateway.Registry) syncer.HistorySourceFunc {
	return func(enterprise bool) (syncer.HistorySource, error) {
		gw, err := registry.For(enterprise)
		if err != nil {
			return nil, err
		}
		return gw, nil
	}
}
