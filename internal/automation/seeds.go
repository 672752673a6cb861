// Package automation holds the recurring-run machinery: a persistent
// seed keyword list and the daily/weekly task runner built on top of
// the mining, scoring, snapshot, and export pipelines.
package automation

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"bookscout/internal/types"
)

const seedFileVersion = 1

// Seed is one persisted seed keyword with its mining history.
type Seed struct {
	Keyword    string     `json:"keyword"`
	Department string     `json:"department"`
	AddedAt    time.Time  `json:"added_at"`
	LastAdded  time.Time  `json:"last_added"`
	LastMined  *time.Time `json:"last_mined,omitempty"`
	MineCount  int        `json:"mine_count"`
}

type seedFile struct {
	Seeds       []Seed    `json:"seeds"`
	LastUpdated time.Time `json:"last_updated"`
	Version     int       `json:"version"`
}

// SeedManager keeps the seed list in a JSON file so scheduled runs
// know what to re-mine. A missing or unreadable file starts empty.
type SeedManager struct {
	path   string
	seeds  []Seed
	logger *slog.Logger
}

func NewSeedManager(path string, logger *slog.Logger) (*SeedManager, error) {
	m := &SeedManager{path: path, logger: logger.With("component", "seeds")}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

// Add records a seed keyword. An existing seed (case-insensitive) has
// its department and last-added time refreshed instead; the return
// value reports whether the seed was new.
func (m *SeedManager) Add(keyword, department string) (bool, error) {
	kw := types.CanonicalKeyword(keyword)
	if kw == "" {
		return false, fmt.Errorf("empty seed keyword")
	}

	now := time.Now()
	for i := range m.seeds {
		if m.seeds[i].Keyword == kw {
			m.seeds[i].Department = department
			m.seeds[i].LastAdded = now
			if err := m.save(); err != nil {
				return false, err
			}
			m.logger.Info("seed updated", "keyword", kw, "department", department)
			return false, nil
		}
	}

	m.seeds = append(m.seeds, Seed{
		Keyword:    kw,
		Department: department,
		AddedAt:    now,
		LastAdded:  now,
	})
	if err := m.save(); err != nil {
		return false, err
	}
	m.logger.Info("seed added", "keyword", kw, "department", department)
	return true, nil
}

// Remove deletes a seed keyword, reporting whether it existed.
func (m *SeedManager) Remove(keyword string) (bool, error) {
	kw := types.CanonicalKeyword(keyword)
	kept := m.seeds[:0]
	removed := false
	for _, s := range m.seeds {
		if s.Keyword == kw {
			removed = true
			continue
		}
		kept = append(kept, s)
	}
	m.seeds = kept
	if !removed {
		return false, nil
	}
	if err := m.save(); err != nil {
		return false, err
	}
	m.logger.Info("seed removed", "keyword", kw)
	return true, nil
}

// MarkMined stamps a seed as just mined and bumps its mine count.
// Unknown keywords are ignored.
func (m *SeedManager) MarkMined(keyword string) error {
	kw := types.CanonicalKeyword(keyword)
	for i := range m.seeds {
		if m.seeds[i].Keyword == kw {
			now := time.Now()
			m.seeds[i].LastMined = &now
			m.seeds[i].MineCount++
			return m.save()
		}
	}
	return nil
}

// Seeds returns a copy of the seed list in insertion order.
func (m *SeedManager) Seeds() []Seed {
	out := make([]Seed, len(m.seeds))
	copy(out, m.seeds)
	return out
}

func (m *SeedManager) Len() int { return len(m.seeds) }

func (m *SeedManager) save() error {
	if dir := filepath.Dir(m.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create seeds dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(seedFile{
		Seeds:       m.seeds,
		LastUpdated: time.Now(),
		Version:     seedFileVersion,
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("write seeds file: %w", err)
	}
	return nil
}

func (m *SeedManager) load() error {
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read seeds file: %w", err)
	}

	var file seedFile
	if err := json.Unmarshal(data, &file); err != nil {
		// A corrupt file should not block every run.
		m.logger.Warn("seeds file unreadable, starting empty", "path", m.path, "err", err)
		return nil
	}
	m.seeds = file.Seeds
	return nil
}
