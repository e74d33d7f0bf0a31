// Package gpkg writes geometry collections to GeoPackage containers.
//
// A GeoPackage is a SQLite database with a fixed metadata schema
// (gpkg_spatial_ref_sys, gpkg_contents, gpkg_geometry_columns) and one
// feature table per layer whose geometry column holds GeoPackage binary
// blobs: a "GP" header with srs id and envelope, followed by standard WKB.
package gpkg

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	_ "modernc.org/sqlite"

	"github.com/jbakerGIS/maine-wildfire-analysis/internal/domain"
)

const (
	applicationID = 0x47504B47 // "GPKG"
	userVersion   = 10300      // GeoPackage 1.3
)

// Writer persists boundary layers to GeoPackage files. It implements
// pipeline.Exporter.
type Writer struct {
	logger *slog.Logger
}

// NewWriter creates a GeoPackage writer.
func NewWriter(logger *slog.Logger) *Writer {
	return &Writer{logger: logger}
}

// WriteBoundaries writes a boundary collection as a named layer, creating
// the container, its parent directories, and the metadata tables as needed.
// Writing a second layer to the same path appends to the container.
func (w *Writer) WriteBoundaries(ctx context.Context, c domain.BoundaryCollection, path, layer string) error {
	rows := make([]featureRow, len(c.Boundaries))
	for i, b := range c.Boundaries {
		rows[i] = featureRow{name: b.Name, geometry: b.Geometry}
	}
	return w.writeLayer(ctx, path, layer, c.CRS, c.NameKey, "", rows)
}

// WriteCounts writes the aggregated county fire counts as a named layer,
// carrying the count in a "Number of Fires" column alongside the name key.
func (w *Writer) WriteCounts(ctx context.Context, counts []domain.CountyFireCount, crsCode, nameKey, path, layer string) error {
	rows := make([]featureRow, len(counts))
	for i, c := range counts {
		count := c.Count
		rows[i] = featureRow{name: c.Name, geometry: c.Geometry, count: &count}
	}
	return w.writeLayer(ctx, path, layer, crsCode, nameKey, domain.CountColumn, rows)
}

func (w *Writer) writeLayer(ctx context.Context, path, layer, crsCode, nameCol, countCol string, rows []featureRow) error {
	exportErr := func(err error) error {
		return domain.NewStageError("export", domain.KindExport, err)
	}

	srsID, err := srsIDForCode(crsCode)
	if err != nil {
		return exportErr(err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return exportErr(err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return exportErr(err)
	}
	defer db.Close()

	if err := ensureMetadata(ctx, db, srsID, crsCode); err != nil {
		return exportErr(err)
	}

	if err := createLayer(ctx, db, layer, nameCol, countCol, srsID, bound(rows)); err != nil {
		return exportErr(err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return exportErr(err)
	}
	defer tx.Rollback()

	for _, row := range rows {
		blob, err := gpkgGeometry(row.geometry, srsID)
		if err != nil {
			return exportErr(err)
		}
		if countCol == "" {
			_, err = tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO %s (%s, geom) VALUES (?, ?)`, quote(layer), quote(nameCol)),
				row.name, blob)
		} else {
			_, err = tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO %s (%s, %s, geom) VALUES (?, ?, ?)`,
					quote(layer), quote(nameCol), quote(countCol)),
				row.name, *row.count, blob)
		}
		if err != nil {
			return exportErr(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return exportErr(err)
	}

	w.logger.Info("exported layer", "path", path, "layer", layer, "features", len(rows))
	return nil
}

type featureRow struct {
	name     string
	geometry orb.MultiPolygon
	count    *int
}

func srsIDForCode(code string) (int32, error) {
	s, ok := strings.CutPrefix(code, "EPSG:")
	if !ok {
		return 0, fmt.Errorf("CRS %q is not an EPSG code", code)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("CRS %q is not an EPSG code", code)
	}
	return int32(n), nil
}

func ensureMetadata(ctx context.Context, db *sql.DB, srsID int32, crsCode string) error {
	stmts := []string{
		fmt.Sprintf("PRAGMA application_id = %d", applicationID),
		fmt.Sprintf("PRAGMA user_version = %d", userVersion),
		`CREATE TABLE IF NOT EXISTS gpkg_spatial_ref_sys (
			srs_name TEXT NOT NULL,
			srs_id INTEGER PRIMARY KEY,
			organization TEXT NOT NULL,
			organization_coordsys_id INTEGER NOT NULL,
			definition TEXT NOT NULL,
			description TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS gpkg_contents (
			table_name TEXT PRIMARY KEY,
			data_type TEXT NOT NULL,
			identifier TEXT UNIQUE,
			description TEXT DEFAULT '',
			last_change DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
			min_x DOUBLE, min_y DOUBLE, max_x DOUBLE, max_y DOUBLE,
			srs_id INTEGER,
			CONSTRAINT fk_gc_r_srs_id FOREIGN KEY (srs_id) REFERENCES gpkg_spatial_ref_sys(srs_id)
		)`,
		`CREATE TABLE IF NOT EXISTS gpkg_geometry_columns (
			table_name TEXT NOT NULL,
			column_name TEXT NOT NULL,
			geometry_type_name TEXT NOT NULL,
			srs_id INTEGER NOT NULL,
			z TINYINT NOT NULL,
			m TINYINT NOT NULL,
			CONSTRAINT pk_geom_cols PRIMARY KEY (table_name, column_name)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	srs := []struct {
		name       string
		id         int32
		org        string
		orgID      int32
		definition string
	}{
		{"Undefined Cartesian SRS", -1, "NONE", -1, "undefined"},
		{"Undefined Geographic SRS", 0, "NONE", 0, "undefined"},
		{"WGS 84", 4326, "EPSG", 4326, wgs84Definition},
		{crsCode, srsID, "EPSG", srsID, definitionForSRS(srsID)},
	}
	for _, r := range srs {
		if _, err := db.ExecContext(ctx,
			`INSERT OR IGNORE INTO gpkg_spatial_ref_sys
			   (srs_name, srs_id, organization, organization_coordsys_id, definition)
			 VALUES (?, ?, ?, ?, ?)`,
			r.name, r.id, r.org, r.orgID, r.definition); err != nil {
			return err
		}
	}
	return nil
}

func createLayer(ctx context.Context, db *sql.DB, layer, nameCol, countCol string, srsID int32, b orb.Bound) error {
	cols := fmt.Sprintf("fid INTEGER PRIMARY KEY AUTOINCREMENT, geom BLOB, %s TEXT", quote(nameCol))
	if countCol != "" {
		cols += fmt.Sprintf(", %s INTEGER", quote(countCol))
	}
	if _, err := db.ExecContext(ctx,
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(layer), cols)); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s", quote(layer))); err != nil {
		return err
	}

	lastChange := domain.Clock().Now().UTC().Format("2006-01-02T15:04:05.000Z")
	if _, err := db.ExecContext(ctx,
		`INSERT OR REPLACE INTO gpkg_contents
		   (table_name, data_type, identifier, last_change, min_x, min_y, max_x, max_y, srs_id)
		 VALUES (?, 'features', ?, ?, ?, ?, ?, ?, ?)`,
		layer, layer, lastChange, b.Min[0], b.Min[1], b.Max[0], b.Max[1], srsID); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx,
		`INSERT OR REPLACE INTO gpkg_geometry_columns
		   (table_name, column_name, geometry_type_name, srs_id, z, m)
		 VALUES (?, 'geom', 'MULTIPOLYGON', ?, 0, 0)`,
		layer, srsID)
	return err
}

// gpkgGeometry encodes a geometry as a GeoPackage binary blob: magic "GP",
// version 0, flags 0x03 (little-endian header, [minx maxx miny maxy]
// envelope), srs id, envelope, then WKB.
func gpkgGeometry(g orb.Geometry, srsID int32) ([]byte, error) {
	data, err := wkb.Marshal(g)
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	buf.Write([]byte{0x47, 0x50, 0x00, 0x03})
	b := g.Bound()
	for _, v := range []any{srsID, b.Min[0], b.Max[0], b.Min[1], b.Max[1]} {
		if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
			return nil, err
		}
	}
	buf.Write(data)
	return buf.Bytes(), nil
}

func bound(rows []featureRow) orb.Bound {
	var b orb.Bound
	for i, row := range rows {
		if i == 0 {
			b = row.geometry.Bound()
			continue
		}
		b = b.Union(row.geometry.Bound())
	}
	return b
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

const wgs84Definition = `GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433]]`

func definitionForSRS(srsID int32) string {
	switch srsID {
	case 4326:
		return wgs84Definition
	case 3857:
		return `PROJCS["WGS 84 / Pseudo-Mercator",GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433]],PROJECTION["Mercator_1SP"],UNIT["metre",1]]`
	case 2802:
		return `PROJCS["NAD83(HARN) / Maine East",GEOGCS["NAD83(HARN)",DATUM["NAD83_High_Accuracy_Reference_Network",SPHEROID["GRS 1980",6378137,298.257222101]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433]],PROJECTION["Transverse_Mercator"],PARAMETER["latitude_of_origin",43.6666666666667],PARAMETER["central_meridian",-68.5],PARAMETER["scale_factor",0.9999],PARAMETER["false_easting",300000],PARAMETER["false_northing",0],UNIT["metre",1]]`
	default:
		return "undefined"
	}
}
