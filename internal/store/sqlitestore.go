package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"boundedclosure/internal/closure/fact"
)

// SQLiteStore is a persistent Source backed by modernc.org/sqlite: facts and
// rules are stored as JSON blobs under a content-addressed primary key, with
// a write-through in-memory cache for repeated reads within one process.
type SQLiteStore struct {
	db *sql.DB

	mu        sync.RWMutex
	factCache map[string]fact.Fact
	ruleCache map[string]fact.Rule

	stmtInsertFact *sql.Stmt
	stmtInsertRule *sql.Stmt
}

// NewSQLiteStore opens (creating if absent) a SQLite-backed store at dbPath.
func NewSQLiteStore(dbPath string, busyTimeoutMS int) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}

	dsn := dbPath + fmt.Sprintf("?_busy_timeout=%d", busyTimeoutMS)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure pragmas: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	s := &SQLiteStore{
		db:        db,
		factCache: make(map[string]fact.Fact),
		ruleCache: make(map[string]fact.Rule),
	}
	if err := s.prepareStatements(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prepare statements: %w", err)
	}
	if err := s.warmCache(); err != nil {
		log.Printf("closure store: cache warm-up skipped: %v", err)
	}
	return s, nil
}

func initSchema(db *sql.DB) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS facts (
		instance_key TEXT PRIMARY KEY,
		fact_id      TEXT NOT NULL,
		payload      TEXT NOT NULL,
		updated_at   INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS rules (
		rule_id    TEXT PRIMARY KEY,
		payload    TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_facts_fact_id ON facts(fact_id);
	`
	_, err := db.Exec(schema)
	return err
}

func (s *SQLiteStore) prepareStatements() error {
	var err error
	s.stmtInsertFact, err = s.db.Prepare(`
		INSERT INTO facts (instance_key, fact_id, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(instance_key) DO UPDATE SET payload=excluded.payload, updated_at=excluded.updated_at
	`)
	if err != nil {
		return err
	}
	s.stmtInsertRule, err = s.db.Prepare(`
		INSERT INTO rules (rule_id, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(rule_id) DO UPDATE SET payload=excluded.payload, updated_at=excluded.updated_at
	`)
	return err
}

func (s *SQLiteStore) warmCache() error {
	rows, err := s.db.Query(`SELECT instance_key, payload FROM facts`)
	if err != nil {
		return err
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for rows.Next() {
		var key, payload string
		if err := rows.Scan(&key, &payload); err != nil {
			return err
		}
		var f fact.Fact
		if err := json.Unmarshal([]byte(payload), &f); err != nil {
			log.Printf("closure store: skipping unparseable fact %s: %v", key, err)
			continue
		}
		s.factCache[key] = f
	}

	ruleRows, err := s.db.Query(`SELECT rule_id, payload FROM rules`)
	if err != nil {
		return err
	}
	defer ruleRows.Close()
	for ruleRows.Next() {
		var id, payload string
		if err := ruleRows.Scan(&id, &payload); err != nil {
			return err
		}
		var r fact.Rule
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			log.Printf("closure store: skipping unparseable rule %s: %v", id, err)
			continue
		}
		s.ruleCache[id] = r
	}
	return nil
}

// PutFact upserts a fact, writing through to the cache.
func (s *SQLiteStore) PutFact(f fact.Fact) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal fact: %w", err)
	}
	if _, err := s.stmtInsertFact.Exec(f.InstanceKey(), f.FactID, payload, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("insert fact: %w", err)
	}
	s.mu.Lock()
	s.factCache[f.InstanceKey()] = f
	s.mu.Unlock()
	return nil
}

// PutRule upserts a rule, writing through to the cache.
func (s *SQLiteStore) PutRule(r fact.Rule) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal rule: %w", err)
	}
	if _, err := s.stmtInsertRule.Exec(r.RuleID, payload, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}
	s.mu.Lock()
	s.ruleCache[r.RuleID] = r
	s.mu.Unlock()
	return nil
}

// Facts implements FactSource from the warmed cache.
func (s *SQLiteStore) Facts() ([]fact.Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]fact.Fact, 0, len(s.factCache))
	for _, f := range s.factCache {
		out = append(out, f)
	}
	return out, nil
}

// Rules implements RuleSource from the warmed cache.
func (s *SQLiteStore) Rules() ([]fact.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]fact.Rule, 0, len(s.ruleCache))
	for _, r := range s.ruleCache {
		out = append(out, r)
	}
	return out, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
