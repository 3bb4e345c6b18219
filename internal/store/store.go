// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists generation runs for auditing: the request, the
// research corpus it drew on, and the finished document. The pipeline
// core holds no durable state; the store is an optional sink.
// Implements: prd001-pipeline (R5); docs/ARCHITECTURE § Audit Store.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/thesis-engine/pkg/types"
)

// Store manages the audit SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the audit database at path and creates the schema
// if it does not exist.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			topic TEXT NOT NULL,
			document_type TEXT NOT NULL,
			academic_level TEXT NOT NULL,
			target_words INTEGER NOT NULL,
			focus_areas TEXT,
			style TEXT,
			word_count INTEGER,
			shortfalls TEXT,
			generated TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS research_records (
			run_id INTEGER NOT NULL REFERENCES runs(id),
			record_id TEXT NOT NULL,
			query TEXT NOT NULL,
			url TEXT,
			title TEXT,
			snippet TEXT,
			source TEXT,
			retrieved TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_run ON research_records(run_id)`,
		`CREATE TABLE IF NOT EXISTS documents (
			run_id INTEGER PRIMARY KEY REFERENCES runs(id),
			markdown TEXT NOT NULL,
			document_yaml TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRun persists one finished run in a single transaction and returns
// its run id.
func (s *Store) SaveRun(ctx context.Context, corpus types.ResearchCorpus, doc types.Document) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	focusJSON, _ := json.Marshal(doc.Request.FocusAreas)
	shortfallsJSON, _ := json.Marshal(doc.Shortfalls)

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (topic, document_type, academic_level, target_words, focus_areas, style, word_count, shortfalls, generated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.Request.Topic, string(doc.Request.DocumentType), string(doc.Request.AcademicLevel),
		doc.Request.TargetWords, string(focusJSON), string(doc.Request.CitationStyleOrDefault()),
		doc.WordCount, string(shortfallsJSON), doc.Generated.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO research_records (run_id, record_id, query, url, title, snippet, source, retrieved)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing record insert: %w", err)
	}
	defer stmt.Close()

	for query, bucket := range corpus.Buckets {
		for _, r := range bucket {
			_, err := stmt.ExecContext(ctx,
				runID, r.ID, query, r.URL, r.Title, r.Snippet, r.Source,
				r.Retrieved.Format(time.RFC3339),
			)
			if err != nil {
				return 0, fmt.Errorf("inserting record %s: %w", r.ID, err)
			}
		}
	}

	docYAML, err := yaml.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("marshalling document: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (run_id, markdown, document_yaml) VALUES (?, ?, ?)`,
		runID, doc.Markdown, string(docYAML),
	); err != nil {
		return 0, fmt.Errorf("inserting document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}

// RunSummary is one row of the runs listing.
type RunSummary struct {
	ID           int64
	Topic        string
	DocumentType string
	TargetWords  int
	WordCount    int
	Generated    time.Time
}

// Runs lists saved runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, topic, document_type, target_words, word_count, generated
		 FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var (
			r         RunSummary
			generated string
		)
		if err := rows.Scan(&r.ID, &r.Topic, &r.DocumentType, &r.TargetWords, &r.WordCount, &generated); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Generated, _ = time.Parse(time.RFC3339, generated)
		summaries = append(summaries, r)
	}
	return summaries, rows.Err()
}

// Document loads a saved document by run id.
func (s *Store) Document(ctx context.Context, runID int64) (types.Document, error) {
	var docYAML string
	err := s.db.QueryRowContext(ctx,
		`SELECT document_yaml FROM documents WHERE run_id = ?`, runID,
	).Scan(&docYAML)
	if err == sql.ErrNoRows {
		return types.Document{}, fmt.Errorf("no document for run %d", runID)
	}
	if err != nil {
		return types.Document{}, fmt.Errorf("querying document: %w", err)
	}

	var doc types.Document
	if err := yaml.Unmarshal([]byte(docYAML), &doc); err != nil {
		return types.Document{}, fmt.Errorf("parsing stored document: %w", err)
	}
	return doc, nil
}

// Records loads the research records saved for a run, grouped by query.
func (s *Store) Records(ctx context.Context, runID int64) (types.ResearchCorpus, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_id, query, url, title, snippet, source, retrieved
		 FROM research_records WHERE run_id = ?`, runID)
	if err != nil {
		return types.ResearchCorpus{}, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	corpus := types.ResearchCorpus{Buckets: make(map[string][]types.ResearchRecord)}
	for rows.Next() {
		var (
			r         types.ResearchRecord
			retrieved string
		)
		if err := rows.Scan(&r.ID, &r.Query, &r.URL, &r.Title, &r.Snippet, &r.Source, &retrieved); err != nil {
			return types.ResearchCorpus{}, fmt.Errorf("scanning record: %w", err)
		}
		r.Retrieved, _ = time.Parse(time.RFC3339, retrieved)
		corpus.Buckets[r.Query] = append(corpus.Buckets[r.Query], r)
	}
	return corpus, rows.Err()
}
