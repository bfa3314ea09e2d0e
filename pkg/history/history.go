package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/igolaizola/zhiyin/pkg/song"
)

var ErrNotFound = errors.New("history: result not found")

// History is the session list of results, most recent first.
type History struct {
	lck     sync.Mutex
	results []*song.Result
}

func New() *History {
	return &History{}
}

// Prepend adds a result at the head of the list.
func (h *History) Prepend(r *song.Result) {
	h.lck.Lock()
	defer h.lck.Unlock()
	h.results = append([]*song.Result{r}, h.results...)
}

// Remove deletes the result with the given id and reports whether it existed.
func (h *History) Remove(id string) bool {
	h.lck.Lock()
	defer h.lck.Unlock()
	for i, r := range h.results {
		if r.ID == id {
			h.results = append(h.results[:i:i], h.results[i+1:]...)
			return true
		}
	}
	return false
}

func (h *History) Get(id string) (*song.Result, error) {
	h.lck.Lock()
	defer h.lck.Unlock()
	for _, r := range h.results {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, ErrNotFound
}

// List returns a copy of the results, most recent first.
func (h *History) List() []*song.Result {
	h.lck.Lock()
	defer h.lck.Unlock()
	out := make([]*song.Result, len(h.results))
	copy(out, h.results)
	return out
}

func (h *History) Len() int {
	h.lck.Lock()
	defer h.lck.Unlock()
	return len(h.results)
}

func (h *History) Clear() {
	h.lck.Lock()
	defer h.lck.Unlock()
	h.results = nil
}

type row struct {
	ID         string `csv:"id"`
	Title      string `csv:"title"`
	Style      string `csv:"style"`
	Mood       string `csv:"mood"`
	Cover      string `csv:"cover"`
	CreatedAt  string `csv:"created_at"`
	Variant    string `csv:"variant"`
	Label      string `csv:"label"`
	Lyrics     string `csv:"lyrics"`
	SunoPrompt string `csv:"suno_prompt"`
}

// Export writes the session to a json or csv file. CSV files get one row per
// variant.
func (h *History) Export(path string) error {
	results := h.List()

	var b []byte
	switch ext := filepath.Ext(path); ext {
	case ".json":
		var err error
		b, err = json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("history: couldn't marshal json: %w", err)
		}
	case ".csv":
		rows := []*row{}
		for _, r := range results {
			for _, v := range r.Variants {
				rows = append(rows, &row{
					ID:         r.ID,
					Title:      r.Title,
					Style:      r.Style,
					Mood:       r.Mood,
					Cover:      r.Cover,
					CreatedAt:  r.CreatedAt.Format(time.RFC3339),
					Variant:    string(v.Type),
					Label:      v.Label,
					Lyrics:     v.Lyrics,
					SunoPrompt: v.SunoPrompt,
				})
			}
		}
		var err error
		b, err = gocsv.MarshalBytes(&rows)
		if err != nil {
			return fmt.Errorf("history: couldn't marshal csv: %w", err)
		}
	default:
		return fmt.Errorf("history: unsupported output format: %s", ext)
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("history: couldn't write %q: %w", path, err)
	}
	return nil
}
