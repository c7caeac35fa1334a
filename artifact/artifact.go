// Package artifact keeps versioned large objects with an append-only
// history: every commit adds a new version, nothing is rewritten in place.
package artifact

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nexxia-ai/tiermem/compress"
	"github.com/nexxia-ai/tiermem/utils"
)

// Type tags the payload kind of an artifact.
type Type string

const (
	TypeText Type = "text"
	TypeJSON Type = "json"
	TypeCode Type = "code"
)

// Artifact is one version of a large object. Checksum is the SHA-1 of Data.
type Artifact struct {
	ID        string
	Type      Type
	Data      string
	Checksum  string
	CreatedAt time.Time
}

// Manager owns artifact version chains keyed by artifact id.
type Manager struct {
	mu       sync.Mutex
	versions map[string][]Artifact
	clock    func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		versions: make(map[string][]Artifact),
		clock:    time.Now,
	}
}

// Commit appends a new version, computing the checksum and assigning a
// fresh id when the artifact has none.
func (m *Manager) Commit(a Artifact) Artifact {
	a.Checksum = utils.HashText(a.Data)
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.CreatedAt = m.clock()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.versions[a.ID] = append(m.versions[a.ID], a)
	return a
}

// DeltaCommit stores next as a unified diff against prev's data, bounding
// growth when successive versions are near-duplicates. The returned
// artifact's data is the delta, not the full payload.
func (m *Manager) DeltaCommit(prev, next Artifact) Artifact {
	next.Data = compress.Diff(prev.Data, next.Data)
	next.ID = prev.ID
	return m.Commit(next)
}

// Latest returns the newest version of an artifact.
func (m *Manager) Latest(id string) (Artifact, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chain := m.versions[id]
	if len(chain) == 0 {
		return Artifact{}, false
	}
	return chain[len(chain)-1], true
}

// Versions returns the full version chain, oldest first.
func (m *Manager) Versions(id string) []Artifact {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Artifact(nil), m.versions[id]...)
}

// Checksum recomputes the SHA-1 of an artifact's data.
func Checksum(a Artifact) string {
	return utils.HashText(a.Data)
}
