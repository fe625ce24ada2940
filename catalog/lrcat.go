package catalog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

// ScanStats summarizes one catalog read.
type ScanStats struct {
	TotalEntries int `json:"total_entries"`
	Supported    int `json:"supported"`
	Existing     int `json:"existing"`
	Missing      int `json:"missing"`
}

// Scan is the catalog reader result: the on-disk files to enrich and the
// entries whose files have gone away.
type Scan struct {
	Files   []string  `json:"files"`
	Missing []string  `json:"missing"`
	Stats   ScanStats `json:"stats"`
}

// ReadCatalog opens a Lightroom catalog read-only and lists its image
// files. Absolute paths compose as root absolutePath, folder pathFromRoot,
// then filename; entries outside the supported format set are dropped and
// the rest partition by on-disk existence.
func ReadCatalog(lrcatPath string, supportedFormats map[string]bool) (*Scan, error) {
	if _, err := os.Stat(lrcatPath); err != nil {
		return nil, fmt.Errorf("catalog not found at %s: %w", lrcatPath, err)
	}

	db, err := sql.Open("sqlite3", "file:"+lrcatPath+"?mode=ro&_query_only=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog %s: %w", lrcatPath, err)
	}
	defer db.Close()

	query, args, err := sq.
		Select("root.absolutePath", "folder.pathFromRoot", "file.idx_filename").
		From("AgLibraryFile file").
		Join("AgLibraryFolder folder ON folder.id_local = file.folder").
		Join("AgLibraryRootFolder root ON root.id_local = folder.rootFolder").
		OrderBy("root.absolutePath", "folder.pathFromRoot", "file.idx_filename").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog query: %w", err)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog entries: %w", err)
	}
	defer rows.Close()

	scan := &Scan{}
	for rows.Next() {
		var rootPath, folderPath, filename string
		if err := rows.Scan(&rootPath, &folderPath, &filename); err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		scan.Stats.TotalEntries++

		if !supportedFormats[strings.ToLower(filepath.Ext(filename))] {
			continue
		}
		scan.Stats.Supported++

		full := composePath(rootPath, folderPath, filename)
		if _, err := os.Stat(full); err == nil {
			scan.Files = append(scan.Files, full)
			scan.Stats.Existing++
		} else {
			scan.Missing = append(scan.Missing, full)
			scan.Stats.Missing++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog read aborted: %w", err)
	}
	return scan, nil
}

// composePath joins the three catalog segments. Lightroom stores the root
// and folder with trailing slashes; filepath.Join normalizes either way.
func composePath(rootPath, folderPath, filename string) string {
	return filepath.Join(rootPath, filepath.FromSlash(folderPath), filename)
}
