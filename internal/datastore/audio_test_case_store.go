package datastore

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

const audioTestCaseColumns = "id, name, language_code, audio_object_key, reference_text, description, created_at, updated_at"

func scanAudioTestCase(row rowScanner) (*AudioTestCase, error) {
	tc := &AudioTestCase{}
	err := row.Scan(
		&tc.ID,
		&tc.Name,
		&tc.LanguageCode,
		&tc.AudioObjectKey,
		&tc.ReferenceText,
		&tc.Description,
		&tc.CreatedAt,
		&tc.UpdatedAt,
	)
	return tc, err
}

// CreateAudioTestCase inserts tc and returns its ID.
func CreateAudioTestCase(tc *AudioTestCase) (int, error) {
	if DB == nil {
		return 0, ErrNotInitialized
	}
	now := time.Now().UTC()
	tc.CreatedAt = now
	tc.UpdatedAt = now

	query := `
		INSERT INTO audio_test_cases (name, language_code, audio_object_key, reference_text, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var id int
	err := DB.QueryRow(
		query,
		tc.Name,
		tc.LanguageCode,
		tc.AudioObjectKey,
		tc.ReferenceText,
		tc.Description,
		tc.CreatedAt,
		tc.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create audio test case: %w", err)
	}
	tc.ID = id
	return id, nil
}

// GetAudioTestCase retrieves a test case by ID.
func GetAudioTestCase(id int) (*AudioTestCase, error) {
	if DB == nil {
		return nil, ErrNotInitialized
	}
	row := DB.QueryRow("SELECT "+audioTestCaseColumns+" FROM audio_test_cases WHERE id = $1", id)
	tc, err := scanAudioTestCase(row)
	if err != nil {
		return nil, wrapNoRows(err, "audio test case", id)
	}
	return tc, nil
}

// ListAudioTestCases lists test cases, optionally filtered by language code.
func ListAudioTestCases(languageCode string) ([]*AudioTestCase, error) {
	if DB == nil {
		return nil, ErrNotInitialized
	}
	query := "SELECT " + audioTestCaseColumns + " FROM audio_test_cases"
	var args []interface{}
	if languageCode != "" {
		query += " WHERE language_code = $1"
		args = append(args, languageCode)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audio test cases: %w", err)
	}
	defer rows.Close()

	testCases := []*AudioTestCase{}
	for rows.Next() {
		tc, err := scanAudioTestCase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audio test case row: %w", err)
		}
		testCases = append(testCases, tc)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for audio test cases: %w", err)
	}
	return testCases, nil
}

// ErrNoUpdatableFields is returned when an update names no editable column.
var ErrNoUpdatableFields = errors.New("no updatable fields provided")

var audioTestCaseUpdatable = map[string]bool{
	"name":           true,
	"language_code":  true,
	"reference_text": true,
	"description":    true,
}

// UpdateAudioTestCase sets the given string columns. The audio object key
// is not editable.
func UpdateAudioTestCase(id int, fields map[string]string) (*AudioTestCase, error) {
	if DB == nil {
		return nil, ErrNotInitialized
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if audioTestCaseUpdatable[k] {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, ErrNoUpdatableFields
	}
	sort.Strings(keys)

	var setClauses []string
	var args []interface{}
	for _, k := range keys {
		args = append(args, fields[k])
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", k, len(args)))
	}
	args = append(args, time.Now().UTC())
	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, id)

	query := fmt.Sprintf("UPDATE audio_test_cases SET %s WHERE id = $%d", strings.Join(setClauses, ", "), len(args))
	res, err := DB.Exec(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update audio test case with ID %d: %w", id, err)
	}
	if err := checkAffected(res, "audio test case", id); err != nil {
		return nil, err
	}
	return GetAudioTestCase(id)
}

// DeleteAudioTestCase deletes a test case by ID.
func DeleteAudioTestCase(id int) error {
	if DB == nil {
		return ErrNotInitialized
	}
	res, err := DB.Exec("DELETE FROM audio_test_cases WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete audio test case with ID %d: %w", id, err)
	}
	return checkAffected(res, "audio test case", id)
}
