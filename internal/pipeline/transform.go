package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/grid-geo-etl/internal/domain"
)

// GridTransformer implements Transformer: parse, convert the grid reference,
// then optionally reverse geocode.
type GridTransformer struct {
	converter domain.GridConverter
	geocoder  domain.Geocoder
	logger    *slog.Logger
}

// NewTransformer creates a GridTransformer. converter must be safe for
// concurrent use. Pass a nil geocoder to disable geocoding enrichment.
func NewTransformer(converter domain.GridConverter, geocoder domain.Geocoder, logger *slog.Logger) *GridTransformer {
	return &GridTransformer{
		converter: converter,
		geocoder:  geocoder,
		logger:    logger,
	}
}

func (t *GridTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.SitePoint, error) {
	point, err := domain.ParseRawEvent(raw)
	if err != nil {
		return domain.SitePoint{}, err
	}

	point, err = domain.ConvertSite(point, t.converter)
	if err != nil {
		return domain.SitePoint{}, err
	}

	return domain.EnrichWithGeocoding(ctx, point, t.geocoder, t.logger), nil
}
