package annotation

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/teranos/redpen/errors"
	"github.com/teranos/redpen/internal/util"
)

// DocumentStore persists page documents keyed by page id.
// Write must be atomic from a reader's point of view.
type DocumentStore interface {
	// Read returns the document for pageID. A missing page yields an empty
	// document and found=false, not an error.
	Read(pageID string) (page *Page, found bool, err error)
	// Write replaces the document for pageID.
	Write(pageID string, page *Page) error
}

// FileStore keeps one JSON file per page under <root>/pages.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed document store rooted at root.
func NewFileStore(root string) (*FileStore, error) {
	dir := filepath.Join(root, "pages")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.WrapIO(err, "failed to create pages directory")
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory holding page files.
func (fs *FileStore) Dir() string {
	return fs.dir
}

func (fs *FileStore) path(pageID string) string {
	return filepath.Join(fs.dir, pageID+".json")
}

// Read loads a page document. A file that exists but cannot be decoded is an
// IO error: overwriting it would silently discard annotations.
func (fs *FileStore) Read(pageID string) (*Page, bool, error) {
	if err := ValidatePageID(pageID); err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(fs.path(pageID))
	if os.IsNotExist(err) {
		return emptyPage(pageID), false, nil
	}
	if err != nil {
		return nil, false, errors.WrapIO(err, "failed to read page "+pageID)
	}

	var page Page
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, false, errors.WrapIO(err, "corrupt page document "+pageID)
	}
	page.PageID = pageID
	if page.Annotations == nil {
		page.Annotations = []Annotation{}
	}
	return &page, true, nil
}

// Write persists a page document via temp file and rename.
func (fs *FileStore) Write(pageID string, page *Page) error {
	if err := ValidatePageID(pageID); err != nil {
		return err
	}
	data, err := json.Marshal(page)
	if err != nil {
		return errors.Wrap(err, "failed to encode page "+pageID)
	}
	if err := util.WriteFileAtomic(fs.path(pageID), data, 0o644); err != nil {
		return errors.WrapIO(err, "failed to write page "+pageID)
	}
	return nil
}

func emptyPage(pageID string) *Page {
	return &Page{
		PageID:        pageID,
		Annotations:   []Annotation{},
		ServerPageSha: EmptyHash,
	}
}
