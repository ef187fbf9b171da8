package datastore

import (
	"encoding/json"
	"fmt"
	"time"
)

const recognizerProfileColumns = "id, name, engine, api_key, region, endpoint_id, language_code, options, created_at, updated_at"

func scanRecognizerProfile(row rowScanner) (*RecognizerProfile, error) {
	p := &RecognizerProfile{}
	var options []byte
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Engine,
		&p.APIKey,
		&p.Region,
		&p.EndpointID,
		&p.LanguageCode,
		&options,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(options) > 0 && string(options) != "null" {
		p.Options = json.RawMessage(options)
	}
	return p, nil
}

// CreateRecognizerProfile inserts p and returns its ID.
func CreateRecognizerProfile(p *RecognizerProfile) (int, error) {
	if DB == nil {
		return 0, ErrNotInitialized
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `
		INSERT INTO recognizer_profiles (name, engine, api_key, region, endpoint_id, language_code, options, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	var id int
	err := DB.QueryRow(
		query,
		p.Name,
		p.Engine,
		p.APIKey,
		p.Region,
		p.EndpointID,
		p.LanguageCode,
		nullJSON(p.Options),
		p.CreatedAt,
		p.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create recognizer profile: %w", err)
	}
	p.ID = id
	return id, nil
}

// GetRecognizerProfile retrieves a profile by ID.
func GetRecognizerProfile(id int) (*RecognizerProfile, error) {
	if DB == nil {
		return nil, ErrNotInitialized
	}
	row := DB.QueryRow("SELECT "+recognizerProfileColumns+" FROM recognizer_profiles WHERE id = $1", id)
	p, err := scanRecognizerProfile(row)
	if err != nil {
		return nil, wrapNoRows(err, "recognizer profile", id)
	}
	return p, nil
}

// UpdateRecognizerProfile overwrites every mutable column of p.
func UpdateRecognizerProfile(p *RecognizerProfile) error {
	if DB == nil {
		return ErrNotInitialized
	}
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE recognizer_profiles
		SET name = $1, engine = $2, api_key = $3, region = $4, endpoint_id = $5, language_code = $6, options = $7, updated_at = $8
		WHERE id = $9
	`
	res, err := DB.Exec(
		query,
		p.Name,
		p.Engine,
		p.APIKey,
		p.Region,
		p.EndpointID,
		p.LanguageCode,
		nullJSON(p.Options),
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update recognizer profile: %w", err)
	}
	return checkAffected(res, "recognizer profile", p.ID)
}

// DeleteRecognizerProfile deletes a profile by ID.
func DeleteRecognizerProfile(id int) error {
	if DB == nil {
		return ErrNotInitialized
	}
	res, err := DB.Exec("DELETE FROM recognizer_profiles WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete recognizer profile: %w", err)
	}
	return checkAffected(res, "recognizer profile", id)
}

// ListRecognizerProfiles lists profiles, optionally filtered by engine.
func ListRecognizerProfiles(engine string) ([]*RecognizerProfile, error) {
	if DB == nil {
		return nil, ErrNotInitialized
	}
	query := "SELECT " + recognizerProfileColumns + " FROM recognizer_profiles"
	var args []interface{}
	if engine != "" {
		query += " WHERE engine = $1"
		args = append(args, engine)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recognizer profiles: %w", err)
	}
	defer rows.Close()

	profiles := []*RecognizerProfile{}
	for rows.Next() {
		p, err := scanRecognizerProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recognizer profile row: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for recognizer profiles: %w", err)
	}
	return profiles, nil
}
