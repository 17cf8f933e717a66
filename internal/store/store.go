package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ulikunitz/xz"
)

// Durable is the file-backed key-value store holding everything the portal
// must keep across restarts: the session record, active timers, per-day
// accumulators, manual task lists, comp-off requests, and announcements.
// Values are JSON; every write is flushed to disk before returning.
type Durable struct {
	path string
	mu   sync.Mutex
	data map[string]json.RawMessage
}

func OpenDurable(path string) (*Durable, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	d := &Durable{path: path, data: make(map[string]json.RawMessage)}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return d, nil
		}
		return nil, fmt.Errorf("read store: %w", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &d.data); err != nil {
			return nil, fmt.Errorf("parse store: %w", err)
		}
	}
	return d, nil
}

func (d *Durable) Get(key string, out any) (bool, error) {
	d.mu.Lock()
	raw, ok := d.data[key]
	d.mu.Unlock()
	if !ok {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (d *Durable) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data[key] = raw
	return d.persistLocked()
}

func (d *Durable) Delete(key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.data[key]; !ok {
		return nil
	}
	delete(d.data, key)
	return d.persistLocked()
}

func (d *Durable) Keys(prefix string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	keys := make([]string, 0, len(d.data))
	for key := range d.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func (d *Durable) persistLocked() error {
	raw, err := json.MarshalIndent(d.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	tmp := d.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	return os.Rename(tmp, d.path)
}

// Snapshot writes an xz-compressed copy of the store contents.
func (d *Durable) Snapshot(w io.Writer) error {
	d.mu.Lock()
	raw, err := json.Marshal(d.data)
	d.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	zw, err := xz.NewWriter(w)
	if err != nil {
		return fmt.Errorf("open xz writer: %w", err)
	}
	if _, err := zw.Write(raw); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return zw.Close()
}

// Restore replaces the store contents from an xz snapshot.
func (d *Durable) Restore(r io.Reader) error {
	zr, err := xz.NewReader(r)
	if err != nil {
		return fmt.Errorf("open xz reader: %w", err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	restored := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &restored); err != nil {
		return fmt.Errorf("parse snapshot: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data = restored
	return d.persistLocked()
}
