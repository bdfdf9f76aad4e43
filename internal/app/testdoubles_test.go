package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"pdfquery/internal/engine"
	"pdfquery/internal/index"
	"pdfquery/internal/model"
)

type fakeUserStore struct {
	users  map[uint]*model.User
	nextID uint
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[uint]*model.User{}}
}

func (s *fakeUserStore) Create(user *model.User) error {
	s.nextID++
	user.ID = s.nextID
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *fakeUserStore) GetByEmail(email string) (*model.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *fakeUserStore) GetByID(id uint) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	clone := *u
	return &clone, nil
}

type fakeDocumentStore struct {
	docs   map[uint]*model.Document
	nextID uint
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{docs: map[uint]*model.Document{}}
}

func (s *fakeDocumentStore) Create(doc *model.Document) error {
	s.nextID++
	doc.ID = s.nextID
	clone := *doc
	s.docs[doc.ID] = &clone
	return nil
}

func (s *fakeDocumentStore) GetByID(id uint) (*model.Document, error) {
	d, ok := s.docs[id]
	if !ok {
		return nil, nil
	}
	clone := *d
	return &clone, nil
}

func (s *fakeDocumentStore) ListByUserID(userID uint) ([]model.Document, error) {
	var out []model.Document
	for _, d := range s.docs {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (s *fakeDocumentStore) Delete(id uint) error {
	delete(s.docs, id)
	return nil
}

// fakeSessionStore keeps session state in plain maps.
type fakeSessionStore struct {
	active  map[string]string
	revoked map[string]bool
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{active: map[string]string{}, revoked: map[string]bool{}}
}

func (s *fakeSessionStore) ActivateIndex(_ context.Context, sessionID, indexName string) error {
	s.active[sessionID] = indexName
	return nil
}

func (s *fakeSessionStore) ActiveIndex(_ context.Context, sessionID string) (string, bool, error) {
	name, ok := s.active[sessionID]
	return name, ok, nil
}

func (s *fakeSessionStore) ClearIndex(_ context.Context, sessionID string) error {
	delete(s.active, sessionID)
	return nil
}

func (s *fakeSessionStore) Revoke(_ context.Context, sessionID string) error {
	s.revoked[sessionID] = true
	return nil
}

func (s *fakeSessionStore) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	return s.revoked[sessionID], nil
}

// fakeUploads is an in-memory UploadStore.
type fakeUploads struct {
	files map[string][]byte
	n     int
}

func newFakeUploads() *fakeUploads {
	return &fakeUploads{files: map[string][]byte{}}
}

func (u *fakeUploads) Save(ownerID uint, filename string, r io.Reader) (string, error) {
	u.n++
	path := fmt.Sprintf("mem://%d/%d_%s", u.n, ownerID, filename)
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	u.files[path] = raw
	return path, nil
}

func (u *fakeUploads) Open(path string) (io.ReadCloser, error) {
	raw, ok := u.files[path]
	if !ok {
		return nil, fmt.Errorf("open %s: no such file", path)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (u *fakeUploads) Remove(path string) error {
	if _, ok := u.files[path]; !ok {
		return fmt.Errorf("remove %s: no such file", path)
	}
	delete(u.files, path)
	return nil
}

// fakeRegistry records Ensure/Remove calls and serves canned artifacts.
type fakeRegistry struct {
	ensured   map[string]string // name -> text it was built from
	artifacts map[string]*engine.Artifact
	removed   []string
	ensureErr error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{ensured: map[string]string{}, artifacts: map[string]*engine.Artifact{}}
}

func (r *fakeRegistry) Ensure(_ context.Context, documentID uint, text string) (string, error) {
	if r.ensureErr != nil {
		return "", r.ensureErr
	}
	name := index.Name(documentID)
	r.ensured[name] = text
	r.artifacts[name] = &engine.Artifact{Chunks: []engine.Chunk{{Content: text}}}
	return name, nil
}

func (r *fakeRegistry) Load(name string) (*engine.Artifact, error) {
	artifact, ok := r.artifacts[name]
	if !ok {
		return nil, index.ErrArtifactNotFound
	}
	return artifact, nil
}

func (r *fakeRegistry) Remove(name string) error {
	r.removed = append(r.removed, name)
	delete(r.artifacts, name)
	return nil
}

// fakeEngine answers with a canned string.
type fakeEngine struct {
	answer    string
	answerErr error
}

func (e *fakeEngine) BuildIndex(context.Context, string) (*engine.Artifact, error) {
	return &engine.Artifact{Chunks: []engine.Chunk{{Content: "chunk"}}}, nil
}

func (e *fakeEngine) Answer(_ context.Context, _ *engine.Artifact, _ string) (string, error) {
	return e.answer, e.answerErr
}

type fakePublisher struct {
	entries []model.QueryLog
	err     error
}

func (p *fakePublisher) Publish(_ context.Context, entry model.QueryLog) error {
	if p.err != nil {
		return p.err
	}
	p.entries = append(p.entries, entry)
	return nil
}

type fakeQueryLogStore struct {
	logs []model.QueryLog
}

func (s *fakeQueryLogStore) ListRecentByUserID(userID uint, limit int) ([]model.QueryLog, error) {
	var out []model.QueryLog
	for _, l := range s.logs {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakeExtractor returns the stored bytes as text.
type fakeExtractor struct{}

func (fakeExtractor) Extract(r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}
