package ports

import (
	"context"

	"github.com/bnema/sentinel-tiles-cli/internal/domain"
)

type ManifestWriter interface {
	WriteCycle(ctx context.Context, cycleDir string, summary domain.CycleSummary) error
}
