// Package inbox stores raw JSON payloads posted to the API for later
// processing. Entries are immutable: one file per request under
// inbox/YYYYMMDD/<uuid>.json.
package inbox

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/teranos/redpen/errors"
	"github.com/teranos/redpen/internal/util"
	"github.com/teranos/redpen/logger"
	"go.uber.org/zap"
)

const dirName = "inbox"

// Entry is the stored envelope around a payload.
type Entry struct {
	Body       map[string]any `json:"body"`
	ReceivedAt time.Time      `json:"receivedAt"`
	RemoteAddr string         `json:"remoteAddr,omitempty"`
}

// Inbox writes entries below a storage root.
type Inbox struct {
	root   string
	now    func() time.Time
	logger *zap.SugaredLogger
}

// New creates an inbox rooted at <storageDir>/inbox.
func New(storageDir string, log *zap.SugaredLogger) *Inbox {
	if log == nil {
		log = logger.ComponentLogger("inbox")
	}
	return &Inbox{
		root:   filepath.Join(storageDir, dirName),
		now:    time.Now,
		logger: log,
	}
}

// Save stores body and returns the entry path relative to the storage root.
func (in *Inbox) Save(body map[string]any, remoteAddr string) (string, error) {
	if body == nil {
		return "", errors.Validationf("body must be a JSON object")
	}

	now := in.now()
	entry := Entry{Body: body, ReceivedAt: now, RemoteAddr: remoteAddr}
	data, err := json.Marshal(entry)
	if err != nil {
		return "", errors.Validationf("body cannot be encoded: %v", err)
	}

	rel := filepath.Join(dirName, now.Format("20060102"), uuid.New().String()+".json")
	abs := filepath.Join(filepath.Dir(in.root), rel)
	if err := util.WriteFileAtomic(abs, data, os.FileMode(0o644)); err != nil {
		return "", errors.WrapIO(err, "failed to store inbox entry")
	}

	in.logger.Infow("Stored inbox entry",
		logger.FieldPath, filepath.ToSlash(rel),
		logger.FieldSize, len(data),
		logger.FieldRemoteAddr, remoteAddr,
	)
	return filepath.ToSlash(rel), nil
}
