package bridge

import (
	"context"

	"github.com/markermatic/markermatic/internal/config"
)

// VendorPreparer makes sure a DAW's own configuration exposes the OSC
// endpoint the bridge expects. changed reports that the DAW's files were
// modified and the DAW must be restarted.
type VendorPreparer interface {
	Ensure(ctx context.Context, dawType string, cfg config.Config) (changed bool, err error)
}

// NoopPreparer assumes the DAW is already configured.
type NoopPreparer struct{}

func (NoopPreparer) Ensure(context.Context, string, config.Config) (bool, error) { return false, nil }

// PreparerFunc adapts a function to VendorPreparer.
type PreparerFunc func(ctx context.Context, dawType string, cfg config.Config) (bool, error)

func (f PreparerFunc) Ensure(ctx context.Context, dawType string, cfg config.Config) (bool, error) {
	return f(ctx, dawType, cfg)
}

// needsPreparation lists the DAWs whose OSC surface lives in their own config.
func needsPreparation(dawType string) bool {
	return dawType == config.DAWReaper || dawType == config.DAWArdour
}
