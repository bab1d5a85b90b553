package annotation

import (
	"github.com/teranos/redpen/errors"
	"github.com/teranos/redpen/logger"
	"go.uber.org/zap"
)

// Store enforces id assignment, validation and optimistic concurrency on top
// of a DocumentStore.
type Store struct {
	docs   DocumentStore
	locks  *pageLocks
	logger *zap.SugaredLogger
}

// NewStore creates an annotation store over docs.
func NewStore(docs DocumentStore, log *zap.SugaredLogger) *Store {
	if log == nil {
		log = logger.ComponentLogger("annotation")
	}
	return &Store{
		docs:   docs,
		locks:  newPageLocks(),
		logger: log,
	}
}

// GetPage returns a copy of the page document and its current hash.
// A page that was never written is returned empty.
func (s *Store) GetPage(pageID string) (*Page, string, error) {
	page, err := s.load(pageID)
	if err != nil {
		return nil, "", err
	}
	return page, page.ServerPageSha, nil
}

// CreateAnnotation validates and appends a new annotation, returning the
// minted id and the page's new hash.
func (s *Store) CreateAnnotation(pageID string, in NewAnnotation) (string, string, error) {
	if err := ValidatePageID(pageID); err != nil {
		return "", "", err
	}

	ann := Annotation{
		AnnType:     in.AnnType,
		Text:        in.Text,
		TargetBlock: in.TargetBlock,
		Coords:      in.Coords,
	}
	// General comments are page-level; anchor them at the page origin.
	if ann.AnnType == TypeGeneral && ann.TargetBlock == nil && ann.Coords == nil {
		ann.Coords = &Coords{}
	}
	if err := ann.validate(); err != nil {
		return "", "", err
	}

	release := s.locks.lock(pageID)
	defer release()

	page, err := s.load(pageID)
	if err != nil {
		return "", "", err
	}

	ann.ID = nextID(page.Annotations)
	page.Annotations = append(page.Annotations, ann.clone())

	sha, err := s.persist(page)
	if err != nil {
		return "", "", err
	}

	s.logger.Infow("Annotation created",
		logger.FieldPageID, pageID,
		logger.FieldAnnotationID, ann.ID,
		logger.FieldPageSha, shortSha(sha),
	)
	return ann.ID, sha, nil
}

// UpdateAnnotation applies patch to annotation id if expectedSha still
// matches the page's current hash. A stale hash returns a conflict and leaves
// the page untouched; the caller must re-fetch and retry.
func (s *Store) UpdateAnnotation(pageID, id, expectedSha string, patch Patch) (string, error) {
	if err := ValidatePageID(pageID); err != nil {
		return "", err
	}
	if expectedSha == "" {
		return "", errors.Validationf("expectedSha is required")
	}

	release := s.locks.lock(pageID)
	defer release()

	page, err := s.load(pageID)
	if err != nil {
		return "", err
	}

	if page.ServerPageSha != expectedSha {
		s.logger.Infow("Annotation update rejected: stale hash",
			logger.FieldPageID, pageID,
			logger.FieldAnnotationID, id,
			"expected_sha", shortSha(expectedSha),
			"current_sha", shortSha(page.ServerPageSha),
		)
		return "", errors.WithDetailf(
			errors.Conflictf("page %s changed since %s", pageID, shortSha(expectedSha)),
			"current serverPageSha is %s", page.ServerPageSha)
	}

	idx := -1
	for i := range page.Annotations {
		if page.Annotations[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", errors.NotFoundf("annotation %s not found on page %s", id, pageID)
	}

	updated := page.Annotations[idx].clone()
	if patch.AnnType != nil {
		updated.AnnType = *patch.AnnType
	}
	if patch.Text != nil {
		updated.Text = *patch.Text
	}
	if patch.Coords != nil {
		c := *patch.Coords
		updated.Coords = &c
	}
	if err := updated.validate(); err != nil {
		return "", err
	}
	page.Annotations[idx] = updated

	sha, err := s.persist(page)
	if err != nil {
		return "", err
	}

	s.logger.Infow("Annotation updated",
		logger.FieldPageID, pageID,
		logger.FieldAnnotationID, id,
		logger.FieldPageSha, shortSha(sha),
	)
	return sha, nil
}

// load reads a page and recomputes its hash from the stored annotations so
// the returned token always describes the persisted sequence.
func (s *Store) load(pageID string) (*Page, error) {
	page, found, err := s.docs.Read(pageID)
	if err != nil {
		return nil, err
	}
	page = page.clone()

	sha, err := ContentHash(page.Annotations)
	if err != nil {
		return nil, err
	}
	if found && page.ServerPageSha != sha {
		s.logger.Warnw("Stored page hash does not match content, using recomputed hash",
			logger.FieldPageID, pageID,
			"stored_sha", shortSha(page.ServerPageSha),
			"computed_sha", shortSha(sha),
		)
	}
	page.ServerPageSha = sha
	return page, nil
}

// persist recomputes the hash and writes content and hash together.
func (s *Store) persist(page *Page) (string, error) {
	sha, err := ContentHash(page.Annotations)
	if err != nil {
		return "", err
	}
	page.ServerPageSha = sha
	if err := s.docs.Write(page.PageID, page); err != nil {
		s.logger.Errorw("Failed to persist page",
			logger.FieldPageID, page.PageID,
			logger.FieldError, err,
		)
		return "", err
	}
	return sha, nil
}

// shortSha truncates a hash to 12 characters for logging
func shortSha(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
