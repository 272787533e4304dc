// Package domain models satellite swaths and the gas-flare records derived
// from them.
//
// # Swaths
//
// A [Swath] is one sensor pass decoded into aligned 2-D band arrays. Every
// band shares the swath's line/sample shape; lines run along track and samples
// across track. Band names follow the ATSR product conventions:
//
//	latitude, longitude      geodetic position (degrees)
//	reflec_nadir_1600        SWIR reflectance (percent)
//	btemp_nadir_0370         MWIR brightness temperature (kelvin)
//	sun_elev_nadir           solar elevation (degrees)
//	view_elev_nadir          view elevation (degrees)
//	cloud_flags_nadir        quality code; 0 and 1 are cloud-free water/land
//
// Missing values are NaN. A missing band or a band whose shape disagrees with
// the swath is a [DataError].
//
// # Product identifiers
//
// ATSR product ids encode the acquisition time at fixed offsets:
//
//	ATS_TOA_1PUUPA20030612_193513_000065272017_00328_06920_4564.N1
//	              ^YYYYMMDD^HHMM
//
// The suffix names the sensor: N1 is AATSR (ats), E2 is ATSR-2 (at2) and E1
// is ATSR-1 (at1). See [ParseProductID].
//
// # Grid cells
//
// Pixels are grouped on a 1 arc-minute grid. A [CellKey] stores each axis as
// sign*(degrees*100 + minutes), so two keys compare exactly without float
// noise. 10°30' is 1030 and -0°59' is -59.
//
// # Type codes
//
// Hotspot pixels carry [TypeNonFlare], [TypeFlare] or [TypeInvalidBackground].
// Sample pixels carry [TypeFlare] (a hotspot) or [TypeCloudFree].
package domain
