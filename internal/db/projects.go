package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ALT-F4-LLC/fixtrack/internal/model"
)

// UpsertProjectMapping records that analysisKey maps to ticketKey. An existing
// mapping for the same analysis project is replaced, including its timestamp.
func UpsertProjectMapping(q queryer, analysisKey, ticketKey string) error {
	_, err := q.Exec(
		`INSERT INTO project_mappings (analysis_project_key, ticket_project_key, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(analysis_project_key) DO UPDATE SET
			ticket_project_key = excluded.ticket_project_key,
			created_at = excluded.created_at`,
		analysisKey, ticketKey, formatTime(Now()),
	)
	if err != nil {
		return fmt.Errorf("upserting project mapping: %w", err)
	}
	return nil
}

// GetProjectMapping returns the mapping for analysisKey or ErrNotFound.
func GetProjectMapping(q queryer, analysisKey string) (*model.ProjectMapping, error) {
	row := q.QueryRow(
		`SELECT analysis_project_key, ticket_project_key, created_at
		 FROM project_mappings WHERE analysis_project_key = ?`, analysisKey,
	)
	p, err := scanProjectMapping(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning project mapping: %w", err)
	}
	return p, nil
}

// ListProjectMappings returns every mapping, newest first.
func ListProjectMappings(q queryer) ([]model.ProjectMapping, error) {
	rows, err := q.Query(
		`SELECT analysis_project_key, ticket_project_key, created_at
		 FROM project_mappings ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying project mappings: %w", err)
	}
	defer rows.Close()

	var mappings []model.ProjectMapping
	for rows.Next() {
		p, err := scanProjectMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project mapping row: %w", err)
		}
		mappings = append(mappings, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating project mapping rows: %w", err)
	}
	return mappings, nil
}

func scanProjectMapping(s scanner) (*model.ProjectMapping, error) {
	var p model.ProjectMapping
	var createdAt string
	if err := s.Scan(&p.AnalysisProjectKey, &p.TicketProjectKey, &createdAt); err != nil {
		return nil, err
	}
	t, err := parseTime("created_at", createdAt)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = t
	return &p, nil
}
