package sourcecache

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"thaileague/pipeline/internal/client"
	"thaileague/pipeline/internal/metrics"
)

var (
	// ErrSourceUnavailable is returned when the remote source cannot be
	// reached and no cached copy exists to fall back on.
	ErrSourceUnavailable = errors.New("source unavailable and no cached copy")

	// ErrEmptySource is returned when the downloaded file parses to zero
	// usable data rows.
	ErrEmptySource = errors.New("source file contains no data rows")
)

// Table is a parsed CSV payload: the header row plus data rows. Rows that
// failed to parse were skipped and counted.
type Table struct {
	Header  []string
	Rows    [][]string
	Skipped int
}

// ColumnIndex returns the position of a header column, -1 when absent
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// FetchResult is the outcome of a season fetch
type FetchResult struct {
	Season    string
	Table     *Table
	Hash      string
	SizeMB    float64
	SourceURL string
	FromCache bool
	Stale     bool
	Message   string
}

// Cache downloads season files and keeps local copies so repeated pipeline
// runs and source outages do not hit the network.
type Cache struct {
	client    *client.Client
	cacheDir  string
	freshness time.Duration
}

// New creates a source cache. freshness is the window during which a cached
// file short-circuits the download; non-positive disables the shortcut.
func New(c *client.Client, cacheDir string, freshness time.Duration) *Cache {
	return &Cache{
		client:    c,
		cacheDir:  cacheDir,
		freshness: freshness,
	}
}

// CachePath returns where a season's raw file lives on disk
func (c *Cache) CachePath(season string) string {
	return filepath.Join(c.cacheDir, fmt.Sprintf("thai_league_%s.csv", season))
}

// Fetch returns the season's parsed table, preferring a fresh cached copy,
// then the network, then a stale cached copy as a degraded success.
func (c *Cache) Fetch(ctx context.Context, season string) (*FetchResult, error) {
	sourceURL, err := c.client.SeasonURL(season)
	if err != nil {
		return nil, err
	}

	cachePath := c.CachePath(season)

	// Fresh cache short-circuits the network entirely
	if c.freshness > 0 {
		if info, err := os.Stat(cachePath); err == nil {
			age := time.Since(info.ModTime())
			if age < c.freshness {
				result, err := c.readCached(season, sourceURL, cachePath)
				if err == nil {
					result.Message = fmt.Sprintf("cached copy is fresh (age %s)", age.Round(time.Second))
					metrics.RecordCacheHit("source")
					log.Debug().
						Str("season", season).
						Dur("age", age).
						Msg("Serving season from fresh cache")
					return result, nil
				}
				log.Warn().Err(err).Str("season", season).Msg("Cached season file unreadable, re-downloading")
			}
		}
	}
	metrics.RecordCacheMiss("source")

	start := time.Now()
	data, fetchErr := c.client.FetchSeasonCSV(ctx, season)
	if fetchErr != nil {
		metrics.RecordSourceDownload(season, "failed", time.Since(start).Seconds())

		// Degraded success: outage with an older copy on disk
		if _, statErr := os.Stat(cachePath); statErr == nil {
			result, readErr := c.readCached(season, sourceURL, cachePath)
			if readErr == nil {
				result.Stale = true
				result.Message = fmt.Sprintf("source unavailable, serving stale cache: %v", fetchErr)
				log.Warn().
					Err(fetchErr).
					Str("season", season).
					Msg("Source unavailable, falling back to stale cache")
				return result, nil
			}
			log.Error().Err(readErr).Str("season", season).Msg("Stale cache unreadable")
		}

		if errors.Is(fetchErr, client.ErrSeasonNotPublished) {
			return nil, fetchErr
		}
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, fetchErr)
	}
	metrics.RecordSourceDownload(season, "success", time.Since(start).Seconds())

	table, err := parseCSV(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse season %s: %w", season, err)
	}
	if len(table.Rows) == 0 {
		return nil, fmt.Errorf("season %s: %w", season, ErrEmptySource)
	}

	if err := c.write(cachePath, data); err != nil {
		// Not fatal: the download succeeded, only the local copy is lost
		log.Warn().Err(err).Str("season", season).Msg("Failed to persist season cache file")
	}

	log.Info().
		Str("season", season).
		Int("rows", len(table.Rows)).
		Int("columns", len(table.Header)).
		Int("skipped", table.Skipped).
		Msg("Season downloaded")

	return &FetchResult{
		Season:    season,
		Table:     table,
		Hash:      contentHash(data),
		SizeMB:    sizeMB(len(data)),
		SourceURL: sourceURL,
		Message:   "downloaded from source",
	}, nil
}

// HasUpdate downloads the season file and compares its content hash to the
// last imported one. It never touches the on-disk cache so a change check
// cannot mask a later full fetch.
func (c *Cache) HasUpdate(ctx context.Context, season, knownHash string) (bool, string, error) {
	data, err := c.client.FetchSeasonCSV(ctx, season)
	if err != nil {
		return false, "", fmt.Errorf("failed to check season %s for updates: %w", season, err)
	}

	hash := contentHash(data)
	changed := knownHash == "" || hash != knownHash

	log.Debug().
		Str("season", season).
		Str("hash", hash).
		Bool("changed", changed).
		Msg("Source change check")

	return changed, hash, nil
}

// FileInfo describes one cached season file
type FileInfo struct {
	Season   string    `json:"season"`
	Path     string    `json:"path"`
	SizeMB   float64   `json:"size_mb"`
	Modified time.Time `json:"modified"`
}

// CacheInfo lists the cached season files present on disk
func (c *Cache) CacheInfo() ([]FileInfo, error) {
	var infos []FileInfo
	for _, season := range client.KnownSeasons() {
		path := c.CachePath(season)
		stat, err := os.Stat(path)
		if err != nil {
			continue
		}
		infos = append(infos, FileInfo{
			Season:   season,
			Path:     path,
			SizeMB:   sizeMB(int(stat.Size())),
			Modified: stat.ModTime(),
		})
	}
	return infos, nil
}

// ClearCache removes the cached file for one season
func (c *Cache) ClearCache(season string) error {
	err := os.Remove(c.CachePath(season))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear season cache: %w", err)
	}
	return nil
}

// ClearAll removes every cached season file
func (c *Cache) ClearAll() error {
	for _, season := range client.KnownSeasons() {
		if err := c.ClearCache(season); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) readCached(season, sourceURL, cachePath string) (*FetchResult, error) {
	data, err := os.ReadFile(cachePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached season file: %w", err)
	}

	table, err := parseCSV(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cached season file: %w", err)
	}
	if len(table.Rows) == 0 {
		return nil, fmt.Errorf("cached season %s: %w", season, ErrEmptySource)
	}

	return &FetchResult{
		Season:    season,
		Table:     table,
		Hash:      contentHash(data),
		SizeMB:    sizeMB(len(data)),
		SourceURL: sourceURL,
		FromCache: true,
	}, nil
}

func (c *Cache) write(cachePath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}
	if err := os.WriteFile(cachePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// parseCSV reads the header plus data rows. Field counts vary between rows
// in the upstream export, so per-row length checks are disabled and rows the
// reader rejects are skipped, not fatal.
func parseCSV(data []byte) (*Table, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	table := &Table{Header: header}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			table.Skipped++
			continue
		}
		if len(row) == 0 {
			table.Skipped++
			continue
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

func contentHash(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func sizeMB(n int) float64 {
	return float64(n) / (1024 * 1024)
}
