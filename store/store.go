package store

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"
)

// Record is the on-disk state of a generated post awaiting a human decision.
type Record struct {
	Theme         string `json:"theme"`
	TimeSlot      string `json:"time_slot"`
	TelegramPost  string `json:"telegram_post"`
	TelegramImage string `json:"telegram_image"`
	ZenPost       string `json:"zen_post"`
	ZenImage      string `json:"zen_image"`
}

// pendingFileRegex extracts the approval id from a pending file name
var pendingFileRegex = regexp.MustCompile(`^pending_(.+?)\.json$`)

// Store persists pending records as pending_<id>.json files in a directory.
// The driver is the only writer; the dispatcher reads and deletes.
type Store struct {
	dir string
	rnd *rand.Rand
}

func NewStore(dir string, rnd *rand.Rand) *Store {
	log.Printf("[STORE] Creating pending post store in %s", dir)
	return &Store{
		dir: dir,
		rnd: rnd,
	}
}

// Stage writes the record under a fresh approval id and returns the id.
// Ids start with unix seconds so that file names sort in staging order,
// which is what LoadLatest relies on.
func (s *Store) Stage(record *Record) (string, error) {
	id := fmt.Sprintf("%d_%04x", time.Now().Unix(), s.rnd.Intn(0x10000))

	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("marshal pending record: %w", err)
	}

	path := s.path(id)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write pending record %s: %w", path, err)
	}

	log.Printf("[STORE] Staged pending post %s (theme: %s, slot: %s)", id, record.Theme, record.TimeSlot)
	return id, nil
}

// Load returns the record for the given id, or nil when the file is missing.
// A file that fails to parse is treated as missing: it may be a write still
// in flight.
func (s *Store) Load(id string) *Record {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[STORE] ERROR reading pending record %s: %v", id, err)
		}
		return nil
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		log.Printf("[STORE] ERROR parsing pending record %s: %v", id, err)
		return nil
	}
	return &record
}

// LoadLatest returns the most recently staged record, determined by the
// lexicographically greatest pending file name. Unparsable files are
// skipped. Returns ("", nil) when nothing is pending.
func (s *Store) LoadLatest() (string, *Record) {
	ids := s.pendingIDs()

	// Newest first
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))

	for _, id := range ids {
		if record := s.Load(id); record != nil {
			log.Printf("[STORE] Latest pending post is %s", id)
			return id, record
		}
	}

	log.Println("[STORE] No pending posts on disk")
	return "", nil
}

// Forget removes the record. Removing a record that is already gone is not
// an error.
func (s *Store) Forget(id string) error {
	err := os.Remove(s.path(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove pending record %s: %w", id, err)
	}

	log.Printf("[STORE] Forgot pending post %s", id)
	return nil
}

// Sweep removes pending records older than maxAge and returns how many
// were removed.
func (s *Store) Sweep(maxAge time.Duration) int {
	removed := 0
	cutoff := time.Now().Add(-maxAge)

	for _, id := range s.pendingIDs() {
		info, err := os.Stat(s.path(id))
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := s.Forget(id); err != nil {
				log.Printf("[STORE] ERROR sweeping pending record %s: %v", id, err)
				continue
			}
			log.Printf("[STORE] Swept aged pending post %s (staged %v)", id, info.ModTime())
			removed++
		}
	}

	return removed
}

func (s *Store) pendingIDs() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		log.Printf("[STORE] ERROR listing pending records: %v", err)
		return nil
	}

	var ids []string
	for _, entry := range entries {
		matches := pendingFileRegex.FindStringSubmatch(entry.Name())
		if matches == nil {
			continue
		}
		ids = append(ids, matches[1])
	}
	return ids
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, "pending_"+id+".json")
}
