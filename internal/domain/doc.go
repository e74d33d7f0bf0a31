// Package domain models the Maine wildfire analysis data.
//
// # Data Sources
//
// Three datasets feed the pipeline, all read from disk as GeoJSON:
//
//   - Fire points: Maine Forest Service wildfire records for the 2022
//     season. Each feature is a single ignition point plus incidental
//     attributes (date, cause, acreage) that are carried through untouched.
//   - State boundaries: the US Census Bureau cartographic boundary file
//     (gz_2010_us_040_00_500k), one polygon or multipolygon per state. Only
//     the "Maine" record is retained downstream.
//   - County boundaries: Maine's sixteen counties as polygons, keyed by a
//     county name attribute assumed unique within the dataset.
//
// # Attribute Key Conventions
//
// The census layer names its state attribute "NAME" (upper case) while the
// county layer uses "Name". Earlier drafts of this analysis baked those
// spellings in as hidden conventions; here they are configuration
// (STATE_NAME_KEY, COUNTY_NAME_KEY) threaded through extraction, the join,
// rendering, and export. A feature missing its name key is a schema error,
// not a silent skip.
//
// # Coordinate Reference Systems
//
// Source coordinates are EPSG:4326 longitude/latitude. Every collection is
// projected into the working CRS (default EPSG:2802, Maine State Plane east
// zone, meters) at load time, before any spatial predicate runs. Mixing
// systems would silently corrupt the containment test, so geometry in this
// package is always working-CRS planar.
//
// # Containment Semantics
//
// The county join uses a strict "within" predicate: a fire point counts for
// the county whose polygon interior contains it, points outside every
// county are dropped, and a point exactly on a shared edge resolves by the
// ray-cast convention of the underlying predicate with no extra
// tie-breaking. Every input county appears exactly once in the aggregate,
// with a zero count when nothing fell inside it.
package domain
