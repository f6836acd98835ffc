// Package credstore reads the locally cached credential session store.
//
// The store is a JSON cache written by the session layer: a current-user
// record with an optional personal token, plus a shared pool of tokens
// ranked by creation time. Reads never fail upward; a missing or corrupt
// cache degrades to an empty result.
package credstore

import (
	"encoding/json"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/vietddude/genrelay/internal/core/domain"
)

// Source provides read-only access to credentials. Implementations must be
// safe for concurrent reads.
type Source interface {
	// Personal returns the current user's own credential, or nil.
	Personal() *domain.Credential

	// Pool returns eligible shared pool credentials, newest first.
	Pool() []domain.Credential
}

type sessionFile struct {
	User struct {
		Username string `json:"username"`
		Token    string `json:"token"`
	} `json:"user"`
	Pool []poolEntry `json:"pool"`
}

type poolEntry struct {
	Token     string `json:"token"`
	CreatedAt string `json:"created_at"` // ISO-8601
}

// FileStore is a Source backed by the JSON session cache on disk.
// Every read re-parses the file so a refreshed cache is picked up without
// restarting; parse failures are logged at debug level and swallowed.
type FileStore struct {
	path      string
	poolFresh int
	log       *slog.Logger
}

// NewFileStore creates a store reading from path. poolFresh bounds how many
// of the newest pool entries are considered eligible; older entries are
// presumed stale.
func NewFileStore(path string, poolFresh int, log *slog.Logger) *FileStore {
	if log == nil {
		log = slog.Default()
	}
	if poolFresh <= 0 {
		poolFresh = 10
	}
	return &FileStore{path: path, poolFresh: poolFresh, log: log}
}

// Personal returns the current user's credential, or nil when the cache is
// missing, corrupt, or has no token.
func (s *FileStore) Personal() *domain.Credential {
	sf, ok := s.read()
	if !ok || sf.User.Token == "" {
		return nil
	}
	return &domain.Credential{
		Token:      sf.User.Token,
		Provenance: domain.ProvenancePersonal,
	}
}

// Pool returns the freshest eligible pool credentials, newest first.
// Entries with unparseable timestamps are skipped individually.
func (s *FileStore) Pool() []domain.Credential {
	sf, ok := s.read()
	if !ok {
		return nil
	}

	creds := make([]domain.Credential, 0, len(sf.Pool))
	for _, e := range sf.Pool {
		if e.Token == "" {
			continue
		}
		created, err := time.Parse(time.RFC3339, e.CreatedAt)
		if err != nil {
			s.log.Debug("Skipping pool entry with bad timestamp", "created_at", e.CreatedAt)
			continue
		}
		creds = append(creds, domain.Credential{
			Token:      e.Token,
			Provenance: domain.ProvenancePool,
			CreatedAt:  created,
		})
	}

	sort.Slice(creds, func(i, j int) bool {
		return creds[i].CreatedAt.After(creds[j].CreatedAt)
	})

	if len(creds) > s.poolFresh {
		creds = creds[:s.poolFresh]
	}
	return creds
}

// Username returns the cached user identity, or "" when unavailable.
func (s *FileStore) Username() string {
	sf, ok := s.read()
	if !ok {
		return ""
	}
	return sf.User.Username
}

func (s *FileStore) read() (sessionFile, bool) {
	var sf sessionFile

	data, err := os.ReadFile(s.path)
	if err != nil {
		s.log.Debug("Credential cache unreadable", "path", s.path, "error", err)
		return sf, false
	}

	if err := json.Unmarshal(data, &sf); err != nil {
		s.log.Debug("Credential cache corrupt", "path", s.path, "error", err)
		return sf, false
	}

	return sf, true
}

// Static is a fixed in-memory Source, mainly for tests and tooling.
type Static struct {
	User       *domain.Credential
	PoolTokens []domain.Credential
}

func (s Static) Personal() *domain.Credential { return s.User }

func (s Static) Pool() []domain.Credential { return s.PoolTokens }
