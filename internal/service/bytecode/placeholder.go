package bytecode

import (
	"context"

	"github.com/oshokin/apk-packager/internal/dex"
	"github.com/oshokin/apk-packager/internal/domain/apk"
	"github.com/oshokin/apk-packager/internal/logger"
)

// Placeholder writes the empty DEX container. It is the terminal strategy.
type Placeholder struct{}

// Provenance implements Strategy.
func (Placeholder) Provenance() apk.Provenance {
	return apk.ProvenancePlaceholder
}

// Produce implements Strategy.
func (Placeholder) Produce(ctx context.Context, req *Request) error {
	logger.Warn(ctx, "Unable to create functional bytecode, writing a placeholder container")

	return dex.WritePlaceholder(req.Output())
}
