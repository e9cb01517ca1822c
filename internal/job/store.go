package job

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	requestFileName = "request.json"
	stateFileName   = "state.json"
	htmlFileName    = "result.html"
	pngFileName     = "preview.png"
)

var (
	pngSignature  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	jpegSignature = []byte{0xFF, 0xD8, 0xFF}
)

// Store is the durable, per-job filesystem record described in §4.3/§6.2.
// Mutations to an individual job's State are serialized through a lazily
// populated mutex registry; the store performs no locking across jobs.
type Store struct {
	root string

	mu    sync.Mutex // guards the registry below, never held across I/O
	locks map[string]*sync.Mutex
}

// New constructs a Store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("job store: create root: %w", err)
	}
	return &Store{root: dir, locks: make(map[string]*sync.Mutex)}, nil
}

func (s *Store) jobDir(jobID string) string { return filepath.Join(s.root, jobID) }

func (s *Store) lockFor(jobID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[jobID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[jobID] = l
	}
	return l
}

// Create writes the immutable request record and the initial queued state.
// If imageDataURL is non-empty it is decoded and persisted alongside the
// request; its MIME type selects the on-disk extension.
func (s *Store) Create(jobID string, req Input) error {
	dir := s.jobDir(jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("job store: create job dir: %w", err)
	}

	if req.ImageDataURL != "" {
		ext, data, err := decodeDataURL(req.ImageDataURL)
		if err != nil {
			return fmt.Errorf("job store: decode image: %w", err)
		}
		if len(data) > maxImageBytes {
			return fmt.Errorf("job store: image exceeds %d bytes", maxImageBytes)
		}
		if err := writeFileAtomic(filepath.Join(dir, "input"+ext), data); err != nil {
			return fmt.Errorf("job store: write image: %w", err)
		}
	}

	reqBytes, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return fmt.Errorf("job store: marshal request: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, requestFileName), reqBytes); err != nil {
		return fmt.Errorf("job store: write request: %w", err)
	}

	now := time.Now().UTC()
	initial := State{Status: StatusQueued, CreatedAt: now, UpdatedAt: now}
	return s.writeState(dir, initial)
}

// Get returns the current State for jobID, or a *NotFoundError.
func (s *Store) Get(jobID string) (State, error) {
	lock := s.lockFor(jobID)
	lock.Lock()
	defer lock.Unlock()
	return s.readState(s.jobDir(jobID), jobID)
}

// GetInput reconstructs the original Input, including re-deriving the
// image data URL from the persisted bytes via magic-byte sniffing.
func (s *Store) GetInput(jobID string) (Input, error) {
	dir := s.jobDir(jobID)
	raw, err := os.ReadFile(filepath.Join(dir, requestFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return Input{}, &NotFoundError{JobID: jobID}
		}
		return Input{}, fmt.Errorf("job store: read request: %w", err)
	}
	var in Input
	if err := json.Unmarshal(raw, &in); err != nil {
		return Input{}, fmt.Errorf("job store: unmarshal request: %w", err)
	}
	if dataURL, ok := s.readImageDataURL(dir); ok {
		in.ImageDataURL = dataURL
	}
	return in, nil
}

func (s *Store) readImageDataURL(dir string) (string, bool) {
	for _, name := range []string{"input.png", "input.jpg"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		mime := sniffImageMIME(data)
		if mime == "" {
			continue
		}
		return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), true
	}
	return "", false
}

// Mutator mutates a State in place.
type Mutator func(*State)

// Update applies mutate to the job's current state under its per-job lock,
// bumps UpdatedAt, and persists the result.
func (s *Store) Update(jobID string, mutate Mutator) (State, error) {
	lock := s.lockFor(jobID)
	lock.Lock()
	defer lock.Unlock()

	dir := s.jobDir(jobID)
	st, err := s.readState(dir, jobID)
	if err != nil {
		return State{}, err
	}
	mutate(&st)
	st.UpdatedAt = time.Now().UTC()
	if err := s.writeState(dir, st); err != nil {
		return State{}, err
	}
	return st, nil
}

// SaveHTML persists the generated HTML artifact and records its path.
func (s *Store) SaveHTML(jobID, html string) error {
	dir := s.jobDir(jobID)
	path := filepath.Join(dir, htmlFileName)
	if err := writeFileAtomic(path, []byte(html)); err != nil {
		return fmt.Errorf("job store: write html: %w", err)
	}
	_, err := s.Update(jobID, func(st *State) { st.ResultHTMLPath = path })
	return err
}

// SavePreviewPNG persists the rendered PNG artifact and records its path.
func (s *Store) SavePreviewPNG(jobID string, png []byte) error {
	dir := s.jobDir(jobID)
	path := filepath.Join(dir, pngFileName)
	if err := writeFileAtomic(path, png); err != nil {
		return fmt.Errorf("job store: write preview: %w", err)
	}
	_, err := s.Update(jobID, func(st *State) { st.PreviewPNGPath = path })
	return err
}

func (s *Store) readState(dir, jobID string) (State, error) {
	raw, err := os.ReadFile(filepath.Join(dir, stateFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, &NotFoundError{JobID: jobID}
		}
		return State{}, fmt.Errorf("job store: read state: %w", err)
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, fmt.Errorf("job store: unmarshal state: %w", err)
	}
	return st, nil
}

func (s *Store) writeState(dir string, st State) error {
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("job store: marshal state: %w", err)
	}
	return writeFileAtomic(filepath.Join(dir, stateFileName), raw)
}

// writeFileAtomic writes data by first writing to a sibling temp file and
// renaming over the destination, so a concurrent reader never observes a
// partially written artifact.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func decodeDataURL(dataURL string) (ext string, data []byte, err error) {
	const pngPrefix = "data:image/png;base64,"
	const jpegPrefix = "data:image/jpeg;base64,"
	var b64 string
	switch {
	case strings.HasPrefix(dataURL, pngPrefix):
		ext, b64 = ".png", dataURL[len(pngPrefix):]
	case strings.HasPrefix(dataURL, jpegPrefix):
		ext, b64 = ".jpg", dataURL[len(jpegPrefix):]
	default:
		return "", nil, fmt.Errorf("unsupported image data url")
	}
	data, err = base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", nil, err
	}
	return ext, data, nil
}

func sniffImageMIME(data []byte) string {
	if hasPrefix(data, pngSignature) {
		return "image/png"
	}
	if hasPrefix(data, jpegSignature) {
		return "image/jpeg"
	}
	return ""
}

func hasPrefix(data, sig []byte) bool {
	if len(data) < len(sig) {
		return false
	}
	for i, b := range sig {
		if data[i] != b {
			return false
		}
	}
	return true
}
