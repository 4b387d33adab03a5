package domain

import (
	"context"
	"log/slog"
)

// EnrichWithGeocoding labels a converted point with a street address. If
// geocoder is nil the point is returned untouched; a failed lookup is
// recorded in GeoSource and never fails the point.
func EnrichWithGeocoding(ctx context.Context, point SitePoint, geocoder Geocoder, logger *slog.Logger) SitePoint {
	if geocoder == nil {
		return point
	}

	result, err := geocoder.ReverseGeocode(ctx, point.Geo.Lat, point.Geo.Lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"point_id", point.ID,
			"lat", point.Geo.Lat,
			"lon", point.Geo.Lon,
			"error", err,
		)
		point.GeoSource = GeoSourceFailed
		return point
	}
	if result.FormattedAddress == "" {
		point.GeoSource = GeoSourceOriginal
		return point
	}

	point.FormattedAddress = result.FormattedAddress
	point.PlaceName = result.PlaceName
	point.GeoConfidence = result.Confidence
	point.GeoSource = GeoSourceReverse
	return point
}
