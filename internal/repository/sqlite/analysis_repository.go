package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"kidneystone/internal/model"
)

const analysisColumns = `a.id, a.patient_name, a.patient_info, a.image_digest, a.image_quality,
	a.total_count, a.confidence, a.findings, a.recommendations, a.model_used,
	a.filename, a.filepath, a.filesize, a.timestamp`

// AnalysisRepository implements repository.AnalysisRepository for SQLite.
type AnalysisRepository struct {
	db *DB
}

// NewAnalysisRepository creates a new SQLite analysis repository.
func NewAnalysisRepository(db *DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Insert adds a new analysis record to the database.
func (r *AnalysisRepository) Insert(a *model.Analysis) error {
	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`
		INSERT INTO analyses (id, patient_name, patient_info, image_digest, image_quality,
			total_count, confidence, findings, recommendations, model_used,
			filename, filepath, filesize, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.PatientName, a.PatientInfo, a.ImageDigest, a.ImageQuality,
		a.TotalCount, a.Confidence, a.Findings, a.Recommendations, a.ModelUsed,
		a.Filename, a.FilePath, a.FileSize, a.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}
	return nil
}

// GetByID retrieves an analysis by its ID. It returns nil when none exists.
func (r *AnalysisRepository) GetByID(id string) (*model.Analysis, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`SELECT `+analysisColumns+` FROM analyses a WHERE a.id = ?`, id)
	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return a, nil
}

// GetAll retrieves analyses matching the filter, newest first.
func (r *AnalysisRepository) GetAll(filter *model.AnalysisFilter) ([]model.Analysis, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := filterClause(filter)
	query := `SELECT ` + analysisColumns + ` FROM analyses a` + where + ` ORDER BY a.timestamp DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	analyses := []model.Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		analyses = append(analyses, *a)
	}

	return analyses, rows.Err()
}

// GetTotalCount returns the number of analyses matching the filter.
func (r *AnalysisRepository) GetTotalCount(filter *model.AnalysisFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := filterClause(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM analyses a`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count analyses: %w", err)
	}
	return count, nil
}

// GetStorageSize returns the total size of stored annotated scans in bytes.
func (r *AnalysisRepository) GetStorageSize() (int64, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var size int64
	if err := r.db.Conn().QueryRow(`SELECT COALESCE(SUM(filesize), 0) FROM analyses`).Scan(&size); err != nil {
		return 0, fmt.Errorf("failed to sum storage size: %w", err)
	}
	return size, nil
}

// GetStats returns aggregate statistics about stored analyses.
func (r *AnalysisRepository) GetStats() (*model.AnalysisStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &model.AnalysisStats{
		PerQuality:  make(map[string]int),
		PerLocation: make(map[string]int),
	}

	err := r.db.Conn().QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(total_count), 0), COALESCE(SUM(filesize), 0), COALESCE(AVG(confidence), 0)
		FROM analyses
	`).Scan(&stats.TotalAnalyses, &stats.TotalStones, &stats.TotalSizeBytes, &stats.AverageConfidence)
	if err != nil {
		return nil, fmt.Errorf("failed to query totals: %w", err)
	}

	if err := r.countInto(stats.PerQuality, `SELECT image_quality, COUNT(*) FROM analyses GROUP BY image_quality`); err != nil {
		return nil, err
	}
	if err := r.countInto(stats.PerLocation, `SELECT location, COUNT(*) FROM stones GROUP BY location`); err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *AnalysisRepository) countInto(dst map[string]int, query string) error {
	rows, err := r.db.Conn().Query(query)
	if err != nil {
		return fmt.Errorf("failed to query counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("failed to scan count: %w", err)
		}
		dst[key] = count
	}
	return rows.Err()
}

// Delete removes an analysis and its stones.
func (r *AnalysisRepository) Delete(id string) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM stones WHERE analysis_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete stones: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM analyses WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}
	return tx.Commit()
}

// DeleteAll removes all analyses and their stones.
func (r *AnalysisRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM stones`); err != nil {
		return fmt.Errorf("failed to delete stones: %w", err)
	}
	if _, err := r.db.Conn().Exec(`DELETE FROM analyses`); err != nil {
		return fmt.Errorf("failed to delete analyses: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*model.Analysis, error) {
	var a model.Analysis
	err := row.Scan(&a.ID, &a.PatientName, &a.PatientInfo, &a.ImageDigest, &a.ImageQuality,
		&a.TotalCount, &a.Confidence, &a.Findings, &a.Recommendations, &a.ModelUsed,
		&a.Filename, &a.FilePath, &a.FileSize, &a.Timestamp)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// filterClause builds the WHERE clause shared by list and count queries.
func filterClause(filter *model.AnalysisFilter) (string, []interface{}) {
	if filter == nil {
		return "", nil
	}

	var conds []string
	var args []interface{}

	if filter.Patient != "" {
		conds = append(conds, "a.patient_name LIKE ?")
		args = append(args, "%"+filter.Patient+"%")
	}

	if filter.Quality != "" {
		conds = append(conds, "a.image_quality = ?")
		args = append(args, filter.Quality)
	}

	if filter.Location != "" {
		conds = append(conds, "EXISTS (SELECT 1 FROM stones s WHERE s.analysis_id = a.id AND s.location = ?)")
		args = append(args, filter.Location)
	}

	if !filter.StartDate.IsZero() {
		conds = append(conds, "DATE(a.timestamp) >= DATE(?)")
		args = append(args, filter.StartDate)
	}

	if !filter.EndDate.IsZero() {
		conds = append(conds, "DATE(a.timestamp) <= DATE(?)")
		args = append(args, filter.EndDate)
	}

	if filter.MinStones > 0 {
		conds = append(conds, "a.total_count >= ?")
		args = append(args, filter.MinStones)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
