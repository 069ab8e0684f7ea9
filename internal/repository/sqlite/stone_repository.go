package sqlite

import (
	"fmt"

	"kidneystone/internal/model"
)

// StoneRepository implements repository.StoneRepository for SQLite.
type StoneRepository struct {
	db *DB
}

// NewStoneRepository creates a new SQLite stone repository.
func NewStoneRepository(db *DB) *StoneRepository {
	return &StoneRepository{db: db}
}

// InsertBatch adds the stones of one or more analyses in a single transaction.
func (r *StoneRepository) InsertBatch(stones []model.Stone) error {
	if len(stones) == 0 {
		return nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO stones (analysis_id, stone_index, location, x, y, width, height,
			size_mm, confidence, characteristics, class_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, s := range stones {
		if _, err := stmt.Exec(s.AnalysisID, s.StoneIndex, s.Location, s.X, s.Y, s.Width, s.Height,
			s.SizeMM, s.Confidence, s.Characteristics, s.ClassID); err != nil {
			return fmt.Errorf("failed to insert stone: %w", err)
		}
	}

	return tx.Commit()
}

// GetByAnalysisID retrieves the stones of an analysis, highest confidence first.
func (r *StoneRepository) GetByAnalysisID(analysisID string) ([]model.Stone, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, analysis_id, stone_index, location, x, y, width, height,
			size_mm, confidence, characteristics, class_id
		FROM stones WHERE analysis_id = ?
		ORDER BY confidence DESC, id ASC
	`, analysisID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stones: %w", err)
	}
	defer rows.Close()

	stones := []model.Stone{}
	for rows.Next() {
		var s model.Stone
		if err := rows.Scan(&s.ID, &s.AnalysisID, &s.StoneIndex, &s.Location, &s.X, &s.Y, &s.Width, &s.Height,
			&s.SizeMM, &s.Confidence, &s.Characteristics, &s.ClassID); err != nil {
			return nil, fmt.Errorf("failed to scan stone: %w", err)
		}
		stones = append(stones, s)
	}

	return stones, rows.Err()
}

// GetLocations returns every distinct location a stone was found in.
func (r *StoneRepository) GetLocations() ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT DISTINCT location FROM stones ORDER BY location`)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	locations := []string{}
	for rows.Next() {
		var location string
		if err := rows.Scan(&location); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, location)
	}

	return locations, rows.Err()
}
