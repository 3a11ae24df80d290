package document

import (
	"sync"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Change is one content change from the client. A nil Range replaces the
// whole document.
type Change struct {
	Range *protocol.Range
	Text  string
}

// Store holds the current snapshot of each open document keyed by URI.
type Store struct {
	mu       sync.RWMutex
	docs     map[string]*Document
	revision int64
}

func NewStore() *Store {
	return &Store{docs: make(map[string]*Document)}
}

// Open stores a new snapshot for uri, replacing any previous one.
func (s *Store) Open(uri, languageID string, version int32, text string) *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revision++
	doc := New(uri, languageID, version, s.revision, text)
	s.docs[uri] = doc
	return doc
}

// Update applies changes in order and publishes the result as a new
// snapshot. It returns false if uri is not open.
func (s *Store) Update(uri string, version int32, changes []Change) (*Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.docs[uri]
	if !ok {
		return nil, false
	}

	text := prev.Text
	for _, c := range changes {
		if c.Range == nil {
			text = c.Text
			continue
		}
		text = New(uri, prev.LanguageID, version, 0, text).Edit(*c.Range, c.Text)
	}

	s.revision++
	doc := New(uri, prev.LanguageID, version, s.revision, text)
	s.docs[uri] = doc
	return doc, true
}

// Close removes uri. It reports whether the document was open.
func (s *Store) Close(uri string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[uri]
	delete(s.docs, uri)
	return ok
}

func (s *Store) Get(uri string) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[uri]
	return doc, ok
}

// URIs returns the URIs of all open documents in no particular order.
func (s *Store) URIs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uris := make([]string, 0, len(s.docs))
	for uri := range s.docs {
		uris = append(uris, uri)
	}
	return uris
}
