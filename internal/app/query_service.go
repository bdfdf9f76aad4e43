package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"pdfquery/internal/engine"
	"pdfquery/internal/index"
	"pdfquery/internal/model"
)

var (
	ErrNoActiveIndex = errors.New("no document has been processed in this session")
	ErrIndexBuild    = errors.New("index build failed")
)

// SessionStore keys per-session state by session ID.
type SessionStore interface {
	ActivateIndex(ctx context.Context, sessionID, indexName string) error
	ActiveIndex(ctx context.Context, sessionID string) (string, bool, error)
	ClearIndex(ctx context.Context, sessionID string) error
	Revoke(ctx context.Context, sessionID string) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// IndexRegistry is the artifact lifecycle surface.
type IndexRegistry interface {
	Ensure(ctx context.Context, documentID uint, text string) (string, error)
	Load(name string) (*engine.Artifact, error)
	Remove(name string) error
}

// TextExtractor turns a stored document into plain text for indexing.
type TextExtractor interface {
	Extract(r io.Reader) (string, error)
}

// DocumentGate is the ownership-checked document fetch, satisfied by
// DocumentService.
type DocumentGate interface {
	Get(requesterID, docID uint) (*model.Document, error)
}

// QueryLogPublisher hands answered queries to the async persist pipeline.
type QueryLogPublisher interface {
	Publish(ctx context.Context, entry model.QueryLog) error
}

// QueryLogStore reads persisted query logs.
type QueryLogStore interface {
	ListRecentByUserID(userID uint, limit int) ([]model.QueryLog, error)
}

type QueryService struct {
	documents DocumentGate
	uploads   UploadStore
	extractor TextExtractor
	registry  IndexRegistry
	eng       engine.Engine
	sessions  SessionStore
	publisher QueryLogPublisher
	logRepo   QueryLogStore
}

func NewQueryService(
	documents DocumentGate,
	uploads UploadStore,
	extractor TextExtractor,
	registry IndexRegistry,
	eng engine.Engine,
	sessions SessionStore,
	publisher QueryLogPublisher,
	logRepo QueryLogStore,
) *QueryService {
	return &QueryService{
		documents: documents,
		uploads:   uploads,
		extractor: extractor,
		registry:  registry,
		eng:       eng,
		sessions:  sessions,
		publisher: publisher,
		logRepo:   logRepo,
	}
}

// Process ensures the document's index exists and points the session at it.
// Reprocessing a second document overwrites the pointer.
func (s *QueryService) Process(ctx context.Context, userID uint, sessionID string, docID uint) (string, error) {
	if sessionID == "" {
		return "", ErrInvalidInput
	}
	doc, err := s.documents.Get(userID, docID)
	if err != nil {
		return "", err
	}

	f, err := s.uploads.Open(doc.Path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}
	text, err := s.extractor.Extract(f)
	f.Close()
	if err != nil {
		return "", fmt.Errorf("%w: extract text: %v", ErrIndexBuild, err)
	}

	name, err := s.registry.Ensure(ctx, doc.ID, text)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %v", ErrIndexBuild, err)
	}

	if err := s.sessions.ActivateIndex(ctx, sessionID, name); err != nil {
		return "", err
	}
	return name, nil
}

// Query resolves the session's active index, answers against it, and hands
// the exchange to the audit pipeline. The answer is returned verbatim.
func (s *QueryService) Query(ctx context.Context, userID uint, sessionID, question string) (string, error) {
	if sessionID == "" {
		return "", ErrInvalidInput
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrInvalidInput
	}

	name, ok, err := s.sessions.ActiveIndex(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoActiveIndex
	}

	artifact, err := s.registry.Load(name)
	if err != nil {
		if errors.Is(err, index.ErrArtifactNotFound) {
			return "", fmt.Errorf("%w: artifact %s is gone", ErrDocumentNotFound, name)
		}
		return "", err
	}

	answer, err := s.eng.Answer(ctx, artifact, question)
	if err != nil {
		return "", fmt.Errorf("answer question failed: %w", err)
	}

	docID, _ := index.ParseName(name)
	entry := model.QueryLog{
		UserID:     userID,
		DocumentID: docID,
		IndexName:  name,
		Question:   question,
		Answer:     answer,
	}
	if err := s.publisher.Publish(ctx, entry); err != nil {
		log.Printf("publish query log failed: %v", err)
	}

	return answer, nil
}

// RecentQueries lists the user's latest answered questions for the dashboard.
func (s *QueryService) RecentQueries(userID uint, limit int) ([]model.QueryLog, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.logRepo.ListRecentByUserID(userID, limit)
}
