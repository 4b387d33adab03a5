// Package osgb converts British National Grid (OSGB36, EPSG:27700) eastings
// and northings into geographic latitude/longitude.
//
// # Method
//
// The conversion is the inverse Transverse Mercator projection on the Airy
// 1830 ellipsoid as published by Ordnance Survey ("A Guide to Coordinate
// Systems in Great Britain", Annexe C):
//
//  1. Solve for the footpoint latitude by fixed-point iteration on the
//     meridional arc M(lat), starting at the true origin latitude:
//
//     lat ← (N − N0 − M)/(a·F0) + lat   until |Δlat| < 1e-10 rad
//
//  2. Evaluate the radii of curvature v, rho and eta² = v/rho − 1 at the
//     footpoint latitude.
//
//  3. Apply the series terms VII..XIIA in dE = E − E0:
//
//     lat = lat − VII·dE² + VIII·dE⁴ − IX·dE⁶
//     lon = lon0 + X·dE − XI·dE³ + XII·dE⁵ − XIIA·dE⁷
//
// # Accuracy
//
// The result is ellipsoidal latitude/longitude on the source datum. No
// Helmert shift or OSTN15 grid is applied: OSGB36 latitude/longitude sits
// up to about 120 m from WGS84 over Great Britain. That is enough for
// plotting historical maps, not for survey work.
//
// # Errors
//
// Convert never returns a partially converged or non-finite coordinate.
// Non-finite input yields [*InvalidInputError], an exhausted iteration
// budget or overflowing series yields [*ConvergenceError], and an invalid
// ellipsoid yields [*ConfigurationError] from [NewConverter].
package osgb
