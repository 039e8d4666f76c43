package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// CachedAgent is the last known copy of one agent directory entry.
type CachedAgent struct {
	ID           string
	Name         string
	SystemPrompt string
	LastSeen     time.Time
}

// AgentCache remembers the agent directory between runs so the selector
// still has entries when the server is unreachable.
type AgentCache struct {
	db *sql.DB
}

func NewAgentCache(dataDir string) (*AgentCache, error) {
	return openAgentCache(filepath.Join(dataDir, "agents.db"))
}

func openAgentCache(dbPath string) (*AgentCache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	cache := &AgentCache{db: db}

	if err := cache.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return cache, nil
}

func (ac *AgentCache) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		system_prompt TEXT,
		last_seen DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_agents_name ON agents(name);
	`

	_, err := ac.db.Exec(schema)
	return err
}

// Upsert replaces the cached directory with agents, keeping server order.
func (ac *AgentCache) Upsert(agents []CachedAgent, seenAt time.Time) error {
	tx, err := ac.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM agents`); err != nil {
		return fmt.Errorf("failed to clear agents: %w", err)
	}

	query := `
	INSERT OR REPLACE INTO agents (id, name, system_prompt, last_seen)
	VALUES (?, ?, ?, ?)
	`
	// Offsetting by index keeps List in server order.
	for i, a := range agents {
		if _, err := tx.Exec(query, a.ID, a.Name, a.SystemPrompt, seenAt.Add(time.Duration(i)*time.Microsecond)); err != nil {
			return fmt.Errorf("failed to save agent %s: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit agents: %w", err)
	}
	return nil
}

func (ac *AgentCache) List() ([]CachedAgent, error) {
	query := `
	SELECT id, name, system_prompt, last_seen
	FROM agents
	ORDER BY last_seen ASC
	`

	rows, err := ac.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []CachedAgent
	for rows.Next() {
		var a CachedAgent
		var prompt sql.NullString
		if err := rows.Scan(&a.ID, &a.Name, &prompt, &a.LastSeen); err != nil {
			continue
		}
		a.SystemPrompt = prompt.String
		agents = append(agents, a)
	}

	return agents, rows.Err()
}

// Find resolves an agent by exact ID, then by case-insensitive name.
// Returns nil if nothing matches (not an error).
func (ac *AgentCache) Find(idOrName string) (*CachedAgent, error) {
	agents, err := ac.List()
	if err != nil {
		return nil, err
	}
	for i := range agents {
		if agents[i].ID == idOrName {
			return &agents[i], nil
		}
	}
	for i := range agents {
		if strings.EqualFold(agents[i].Name, idOrName) {
			return &agents[i], nil
		}
	}
	return nil, nil
}

func (ac *AgentCache) Close() error {
	if ac.db != nil {
		return ac.db.Close()
	}
	return nil
}
