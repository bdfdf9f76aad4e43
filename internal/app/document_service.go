package app

import (
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"pdfquery/internal/index"
	"pdfquery/internal/model"
)

var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrUnsupportedUpload = errors.New("only .pdf uploads are accepted")
	ErrStorage           = errors.New("storage operation failed")
)

// DocumentStore is the persistence surface for document rows.
type DocumentStore interface {
	Create(doc *model.Document) error
	GetByID(id uint) (*model.Document, error)
	ListByUserID(userID uint) ([]model.Document, error)
	Delete(id uint) error
}

// UploadStore holds the raw uploaded files.
type UploadStore interface {
	Save(ownerID uint, filename string, r io.Reader) (string, error)
	Open(path string) (io.ReadCloser, error)
	Remove(path string) error
}

// ArtifactRemover is the slice of the index registry the document service
// needs: dropping a document drops its artifact too.
type ArtifactRemover interface {
	Remove(name string) error
}

type DocumentService struct {
	docRepo   DocumentStore
	uploads   UploadStore
	artifacts ArtifactRemover
}

type UploadDocumentInput struct {
	UserID   uint
	Filename string
	File     io.Reader
}

func NewDocumentService(docRepo DocumentStore, uploads UploadStore, artifacts ArtifactRemover) *DocumentService {
	return &DocumentService{
		docRepo:   docRepo,
		uploads:   uploads,
		artifacts: artifacts,
	}
}

// Upload validates the file type, writes the file, and records the document.
func (s *DocumentService) Upload(input UploadDocumentInput) (*model.Document, error) {
	if input.UserID == 0 || input.File == nil {
		return nil, ErrInvalidInput
	}
	filename := strings.TrimSpace(input.Filename)
	if filename == "" {
		return nil, ErrInvalidInput
	}
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return nil, ErrUnsupportedUpload
	}

	path, err := s.uploads.Save(input.UserID, filename, input.File)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	doc := &model.Document{
		UserID:   input.UserID,
		Filename: filename,
		Path:     path,
	}
	if err := s.docRepo.Create(doc); err != nil {
		if removeErr := s.uploads.Remove(path); removeErr != nil {
			log.Printf("remove orphaned upload %s failed: %v", path, removeErr)
		}
		return nil, err
	}
	return doc, nil
}

func (s *DocumentService) List(userID uint) ([]model.Document, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.docRepo.ListByUserID(userID)
}

// Get is the access gate: a missing row and a foreign row surface as
// different errors, and every document-scoped operation goes through here.
func (s *DocumentService) Get(requesterID, docID uint) (*model.Document, error) {
	if requesterID == 0 || docID == 0 {
		return nil, ErrInvalidInput
	}
	doc, err := s.docRepo.GetByID(docID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	if doc.UserID != requesterID {
		return nil, ErrPermissionDenied
	}
	return doc, nil
}

// Open streams the raw file after the ownership check.
func (s *DocumentService) Open(requesterID, docID uint) (*model.Document, io.ReadCloser, error) {
	doc, err := s.Get(requesterID, docID)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.uploads.Open(doc.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return doc, f, nil
}

// Delete removes the file, the index artifact, and the row. File and
// artifact removal are best effort: a missing file is not fatal to the
// bookkeeping, so failures there are logged and the row is still dropped.
func (s *DocumentService) Delete(requesterID, docID uint) error {
	doc, err := s.Get(requesterID, docID)
	if err != nil {
		return err
	}

	if err := s.uploads.Remove(doc.Path); err != nil {
		log.Printf("remove file for document %d failed: %v", doc.ID, err)
	}
	if err := s.artifacts.Remove(index.Name(doc.ID)); err != nil {
		log.Printf("remove artifact for document %d failed: %v", doc.ID, err)
	}

	return s.docRepo.Delete(doc.ID)
}
