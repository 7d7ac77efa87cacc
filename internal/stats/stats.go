// Package stats provides structured observability for livedit.
// It tracks per-turn streaming metrics (time to first chunk, total time,
// chunk count, final status, editor mode) and persists them to
// ~/.livedit/stats.json.
package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/arin/livedit/internal/config"
	"github.com/arin/livedit/internal/logging"
)

const (
	fileName   = "stats.json"
	maxRecords = 1000
)

// ErrCorrupt is returned when the stats file cannot be decoded.
var ErrCorrupt = errors.New("stats file is corrupt")

// Record is a single instrumented generation turn.
type Record struct {
	Timestamp  time.Time `json:"timestamp"`
	Prompt     string    `json:"prompt"`
	Model      string    `json:"model"`
	Status     string    `json:"status"`
	Mode       string    `json:"mode,omitempty"`
	Chunks     int       `json:"chunks"`
	Chars      int       `json:"chars"`
	FirstChunk int64     `json:"first_chunk_ms,omitempty"`
	Total      int64     `json:"total_ms"`
	Source     string    `json:"source,omitempty"` // "ask", "chat", "serve"
}

// Summary is the aggregated stats dashboard.
type Summary struct {
	TotalTurns       int            `json:"total_turns"`
	CompletionRate   float64        `json:"completion_rate"`
	AvgFirstChunkMs  int64          `json:"avg_first_chunk_ms"`
	AvgTotalMs       int64          `json:"avg_total_ms"`
	AvgChunks        float64        `json:"avg_chunks"`
	StatusBreakdown  map[string]int `json:"status_breakdown"`
	ModeBreakdown    map[string]int `json:"mode_breakdown"`
	SourceBreakdown  map[string]int `json:"source_breakdown"`
	TopPrompts       []PromptCount  `json:"top_prompts"`
	TodayCount       int            `json:"today_count"`
	ThisWeekCount    int            `json:"this_week_count"`
}

// PromptCount pairs a prompt with its usage count.
type PromptCount struct {
	Prompt string `json:"prompt"`
	Count  int    `json:"count"`
}

// Timer measures one turn. The zero value is not usable; call Start.
type Timer struct {
	start      time.Time
	firstChunk time.Duration
	chunks     int
	chars      int
}

// Start begins timing a turn.
func Start() *Timer {
	return &Timer{start: time.Now()}
}

// Chunk records the arrival of text.
func (t *Timer) Chunk(text string) {
	if t.chunks == 0 {
		t.firstChunk = time.Since(t.start)
	}
	t.chunks++
	t.chars += len(text)
}

// Finish builds the record for the turn.
func (t *Timer) Finish(prompt, model, status, mode, source string) Record {
	return Record{
		Prompt:     prompt,
		Model:      model,
		Status:     status,
		Mode:       mode,
		Chunks:     t.chunks,
		Chars:      t.chars,
		FirstChunk: t.firstChunk.Milliseconds(),
		Total:      time.Since(t.start).Milliseconds(),
		Source:     source,
	}
}

var fileMu sync.Mutex

func statsPath() string {
	return filepath.Join(config.Dir(), fileName)
}

// Save appends a new record to the stats file.
func Save(r Record) error {
	fileMu.Lock()
	defer fileMu.Unlock()

	r.Timestamp = time.Now()

	records, err := loadAll()
	if errors.Is(err, ErrCorrupt) {
		// Keep the unreadable history for inspection and start over.
		aside := statsPath() + ".corrupt"
		if rerr := os.Rename(statsPath(), aside); rerr != nil {
			return fmt.Errorf("failed to move corrupt stats file: %w", rerr)
		}
		logging.Component("stats").WithError(err).WithField("path", aside).Warn("moved corrupt stats file aside")
		records = nil
	} else if err != nil {
		return err
	}
	records = append(records, r)

	if len(records) > maxRecords {
		records = records[len(records)-maxRecords:]
	}

	if err := os.MkdirAll(config.Dir(), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(statsPath(), data, 0o600)
}

// LoadAll returns all stored records.
func LoadAll() ([]Record, error) {
	fileMu.Lock()
	defer fileMu.Unlock()
	return loadAll()
}

func loadAll() ([]Record, error) {
	data, err := os.ReadFile(statsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return records, nil
}

// Summarize computes aggregated stats from all records.
func Summarize() (*Summary, error) {
	records, err := LoadAll()
	if err != nil {
		return nil, err
	}

	s := &Summary{
		TotalTurns:      len(records),
		StatusBreakdown: map[string]int{},
		ModeBreakdown:   map[string]int{},
		SourceBreakdown: map[string]int{},
	}
	if len(records) == 0 {
		return s, nil
	}

	var totalFirst, totalAll int64
	var firstCount, doneCount, chunkSum int
	promptFreq := map[string]int{}
	now := time.Now()
	today := now.Truncate(24 * time.Hour)
	weekAgo := now.AddDate(0, 0, -7)

	for _, r := range records {
		if r.Status == "done" {
			doneCount++
		}
		if r.FirstChunk > 0 {
			totalFirst += r.FirstChunk
			firstCount++
		}
		totalAll += r.Total
		chunkSum += r.Chunks
		if r.Status != "" {
			s.StatusBreakdown[r.Status]++
		}
		if r.Mode != "" {
			s.ModeBreakdown[r.Mode]++
		}
		if r.Source != "" {
			s.SourceBreakdown[r.Source]++
		}
		if r.Prompt != "" {
			promptFreq[r.Prompt]++
		}
		if r.Timestamp.After(today) {
			s.TodayCount++
		}
		if r.Timestamp.After(weekAgo) {
			s.ThisWeekCount++
		}
	}

	s.CompletionRate = float64(doneCount) / float64(len(records)) * 100
	s.AvgTotalMs = totalAll / int64(len(records))
	s.AvgChunks = float64(chunkSum) / float64(len(records))
	if firstCount > 0 {
		s.AvgFirstChunkMs = totalFirst / int64(firstCount)
	}

	// Top 5 prompts by frequency.
	s.TopPrompts = topN(promptFreq, 5)

	return s, nil
}

func topN(freq map[string]int, n int) []PromptCount {
	var all []PromptCount
	for p, count := range freq {
		all = append(all, PromptCount{Prompt: p, Count: count})
	}
	// Simple selection sort for small N; ties broken alphabetically.
	for i := 0; i < len(all) && i < n; i++ {
		maxIdx := i
		for j := i + 1; j < len(all); j++ {
			if all[j].Count > all[maxIdx].Count ||
				(all[j].Count == all[maxIdx].Count && all[j].Prompt < all[maxIdx].Prompt) {
				maxIdx = j
			}
		}
		all[i], all[maxIdx] = all[maxIdx], all[i]
	}
	if len(all) > n {
		all = all[:n]
	}
	return all
}
