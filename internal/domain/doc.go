// Package domain models point records located on the British National Grid
// and their conversion to geographic coordinates.
//
// # Data Source
//
// The reference data set is John Snow's 1854 Soho cholera map, distributed
// as two CSV exports of the digitised map layers:
//
//	death.csv   FID, Id, Count, POINT_X, POINT_Y
//	Pumps.csv   FID, Id, POINT_X, POINT_Y
//
// The upstream loader publishes each row as flat JSON to the source topic,
// adding a "layer" field ("deaths" or "pumps") since the column layout alone
// does not identify the file a row came from.
//
// # Coordinate Conventions
//
//	POINT_X  easting in metres on OSGB36 / British National Grid (EPSG:27700)
//	POINT_Y  northing in metres on the same grid
//
// Values are kept as strings on the wire and parsed here. "NaN" and "Inf"
// parse successfully and are passed through so the converter can reject
// them with a typed error; anything else unparseable is a parse failure.
//
// Count is the number of deaths recorded at the address. Pumps carry no
// count. An empty count is treated as zero.
//
// # ID Generation
//
// Point IDs are deterministic SHA-256 hashes of layer|id|easting|northing so
// that replaying the source topic produces the same keys downstream. See
// [GenerateID].
package domain
