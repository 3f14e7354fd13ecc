// Package identity resolves participant names to Gong user IDs using the
// persisted user list.
package identity

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Party pairs a participant display name with its resolved user ID, when one
// exists.
type Party struct {
	Name   string
	UserID string // empty when unresolved
}

// Resolver defines the interface for identity map operations
type Resolver interface {
	// Resolve maps a participant name (or email, or raw id) to a user ID
	Resolve(name string) (string, bool)

	// BuildParties resolves a participant list and selects the primary user
	BuildParties(names []string) ([]Party, string)

	// Reload re-reads the user list from disk
	Reload() error

	Close() error
}

// Config holds configuration for the identity manager
type Config struct {
	FilePath        string // path to the user list CSV
	WatchFile       bool   // whether to watch the file for changes
	DefaultUserID   string // fallback identity when no participant resolves
	DefaultUserName string
}

// managerImpl implements the Resolver interface
type managerImpl struct {
	config     Config
	keys       map[string]string // lookup key -> user ID
	sortedKeys []string          // deterministic order for substring fallback
	mutex      sync.RWMutex
	watcher    *fsnotify.Watcher
	stopWatch  chan struct{}
}

// NewManager creates an identity resolver from the configured user list file.
func NewManager(config Config) (Resolver, error) {
	manager := &managerImpl{
		config:    config,
		keys:      make(map[string]string),
		stopWatch: make(chan struct{}),
	}

	if err := manager.loadUserList(); err != nil {
		return nil, fmt.Errorf("failed to load user list: %w", err)
	}

	if config.WatchFile {
		if err := manager.setupFileWatcher(); err != nil {
			return nil, fmt.Errorf("failed to setup file watcher: %w", err)
		}
	}

	return manager, nil
}

// Resolve maps a name to a user ID. Exact matches against the known key
// variants win; otherwise the name is scanned for any known key as a
// substring, in sorted key order so the fallback is deterministic.
func (m *managerImpl) Resolve(name string) (string, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if id, ok := m.keys[name]; ok {
		return id, true
	}

	for _, key := range m.sortedKeys {
		if strings.Contains(name, key) {
			return m.keys[key], true
		}
	}

	return "", false
}

// BuildParties resolves each participant name to a party. The first
// participant with a resolved identity becomes the primary user; when none
// resolve, the configured fallback identity is appended as an extra party and
// used as primary.
func (m *managerImpl) BuildParties(names []string) ([]Party, string) {
	primary := ""
	parties := make([]Party, 0, len(names)+1)

	for _, name := range names {
		party := Party{Name: name}
		if id, ok := m.Resolve(name); ok {
			party.UserID = id
			if primary == "" {
				primary = id
			}
		}
		parties = append(parties, party)
	}

	if primary == "" {
		parties = append(parties, Party{Name: m.config.DefaultUserName, UserID: m.config.DefaultUserID})
		primary = m.config.DefaultUserID
	}

	return parties, primary
}

// Reload re-reads the user list from the file
func (m *managerImpl) Reload() error {
	return m.loadUserList()
}

// Close closes the manager and cleans up resources
func (m *managerImpl) Close() error {
	if m.config.WatchFile && m.watcher != nil {
		close(m.stopWatch)
		return m.watcher.Close()
	}
	return nil
}

// userListHeader is the column set written by the list-users command.
var userListHeader = []string{"id", "first_name", "last_name", "email", "active", "telephonyEnabled"}

// loadUserList reads the user list CSV and rebuilds the lookup keys.
// Inactive users and users without telephony import are excluded.
func (m *managerImpl) loadUserList() error {
	file, err := os.Open(m.config.FilePath)
	if err != nil {
		return fmt.Errorf("failed to open user list file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read user list header: %w", err)
	}
	if len(header) != len(userListHeader) {
		return fmt.Errorf("unexpected user list header: %v", header)
	}

	newKeys := make(map[string]string)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("malformed user list: %w", err)
		}

		id, firstName, lastName, email := record[0], record[1], record[2], record[3]
		active := strings.EqualFold(record[4], "true")
		telephony := strings.EqualFold(record[5], "true")
		if !active || !telephony {
			continue
		}

		for _, key := range lookupKeys(id, firstName, lastName, email) {
			newKeys[key] = id
		}
	}

	sortedKeys := make([]string, 0, len(newKeys))
	for key := range newKeys {
		sortedKeys = append(sortedKeys, key)
	}
	sort.Strings(sortedKeys)

	// Update data structures atomically
	m.mutex.Lock()
	m.keys = newKeys
	m.sortedKeys = sortedKeys
	m.mutex.Unlock()

	return nil
}

// lookupKeys returns every name variant a participant may appear under in
// meeting metadata.
func lookupKeys(id, firstName, lastName, email string) []string {
	keys := []string{id}
	if email != "" {
		keys = append(keys, email)
	}
	if firstName != "" && lastName != "" {
		keys = append(keys,
			fmt.Sprintf("%s %s", firstName, lastName),
			fmt.Sprintf("%s - %s", firstName, lastName),
			fmt.Sprintf("%s %s", firstName, lastName[:1]),
			fmt.Sprintf("%s %s", firstName[:1], lastName),
		)
	}
	return keys
}

// setupFileWatcher sets up file system watching for the user list file
func (m *managerImpl) setupFileWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	err = watcher.Add(m.config.FilePath)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch file: %w", err)
	}

	m.watcher = watcher

	go m.watchFileChanges()

	return nil
}

// watchFileChanges handles file system events for the user list file
func (m *managerImpl) watchFileChanges() {
	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}

			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				// Small delay to ensure file write is complete
				time.Sleep(10 * time.Millisecond)

				if err := m.loadUserList(); err != nil {
					continue
				}
			}

		case _, ok := <-m.watcher.Errors:
			if !ok {
				return
			}

		case <-m.stopWatch:
			return
		}
	}
}
