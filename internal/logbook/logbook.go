package logbook

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimeworker/internal/domain"
)

const (
	rawSuffix     = ".log"
	archiveSuffix = ".gz.b64"
)

var (
	ErrArchiveExists = errors.New("archive already exists")
	ErrInvalidName   = errors.New("invalid log name")
)

var nameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ArchiveSink receives a copy of every archive written during rotation.
// Upload must fail with ErrArchiveExists rather than overwrite.
type ArchiveSink interface {
	Upload(ctx context.Context, archiveID string, data []byte) error
}

// Book is a directory of per-check newline-delimited JSON logs and their
// compressed archives. Appends and rotation of the same id never interleave.
type Book struct {
	dir    string
	logger *zap.Logger
	sink   ArchiveSink
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type Option func(*Book)

func WithSink(s ArchiveSink) Option { return func(b *Book) { b.sink = s } }

func WithClock(now func() time.Time) Option { return func(b *Book) { b.now = now } }

func New(dir string, logger *zap.Logger, opts ...Option) (*Book, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("logbook.New: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Book{dir: dir, logger: logger, now: time.Now, locks: make(map[string]*sync.Mutex)}
	for _, o := range opts {
		o(b)
	}
	return b, nil
}

func (b *Book) Dir() string { return b.dir }

func (b *Book) lock(id string) func() {
	b.mu.Lock()
	l, ok := b.locks[id]
	if !ok {
		l = &sync.Mutex{}
		b.locks[id] = l
	}
	b.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (b *Book) path(name, suffix string) (string, error) {
	if !nameRe.MatchString(name) {
		return "", fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return filepath.Join(b.dir, name+suffix), nil
}

// Append writes rec as one line to the raw log of id, creating it if needed.
func (b *Book) Append(id domain.CheckID, rec domain.LogRecord) error {
	p, err := b.path(string(id), rawSuffix)
	if err != nil {
		return fmt.Errorf("logbook.Book.Append: %w", err)
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("logbook.Book.Append %s: %w", id, err)
	}
	line = append(line, '\n')

	unlock := b.lock(string(id))
	defer unlock()

	f, err := os.OpenFile(p, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("logbook.Book.Append %s: %w", id, err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("logbook.Book.Append %s: %w", id, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("logbook.Book.Append %s: %w", id, err)
	}
	return nil
}

// List returns raw log ids, plus archive ids when includeArchives is set.
func (b *Book) List(includeArchives bool) ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("logbook.Book.List: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch {
		case strings.HasSuffix(name, archiveSuffix):
			if includeArchives {
				out = append(out, strings.TrimSuffix(name, archiveSuffix))
			}
		case strings.HasSuffix(name, rawSuffix):
			out = append(out, strings.TrimSuffix(name, rawSuffix))
		}
	}
	sort.Strings(out)
	return out, nil
}

// Archives returns only archive ids.
func (b *Book) Archives() ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("logbook.Book.Archives: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), archiveSuffix) {
			out = append(out, strings.TrimSuffix(e.Name(), archiveSuffix))
		}
	}
	sort.Strings(out)
	return out, nil
}

// Compress writes the gzip+base64 form of the raw log of id to archiveID.
// It never overwrites an existing archive.
func (b *Book) Compress(id, archiveID string) error {
	unlock := b.lock(id)
	defer unlock()
	_, err := b.compress(id, archiveID)
	return err
}

func (b *Book) compress(id, archiveID string) ([]byte, error) {
	src, err := b.path(id, rawSuffix)
	if err != nil {
		return nil, fmt.Errorf("logbook.Book.Compress: %w", err)
	}
	dst, err := b.path(archiveID, archiveSuffix)
	if err != nil {
		return nil, fmt.Errorf("logbook.Book.Compress: %w", err)
	}

	raw, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("logbook.Book.Compress %s: %w", id, err)
	}
	encoded, err := encode(raw)
	if err != nil {
		return nil, fmt.Errorf("logbook.Book.Compress %s: %w", id, err)
	}

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("logbook.Book.Compress %s: %w", archiveID, ErrArchiveExists)
		}
		return nil, fmt.Errorf("logbook.Book.Compress %s: %w", archiveID, err)
	}
	if _, err := f.Write(encoded); err != nil {
		f.Close()
		return nil, fmt.Errorf("logbook.Book.Compress %s: %w", archiveID, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("logbook.Book.Compress %s: %w", archiveID, err)
	}
	return encoded, nil
}

// Decompress returns the exact bytes the archive was made from.
func (b *Book) Decompress(archiveID string) ([]byte, error) {
	p, err := b.path(archiveID, archiveSuffix)
	if err != nil {
		return nil, fmt.Errorf("logbook.Book.Decompress: %w", err)
	}
	encoded, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("logbook.Book.Decompress %s: %w", archiveID, err)
	}
	raw, err := decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("logbook.Book.Decompress %s: %w", archiveID, err)
	}
	return raw, nil
}

// Truncate empties the raw log of id but keeps the file.
func (b *Book) Truncate(id string) error {
	unlock := b.lock(id)
	defer unlock()
	return b.truncate(id)
}

func (b *Book) truncate(id string) error {
	p, err := b.path(id, rawSuffix)
	if err != nil {
		return fmt.Errorf("logbook.Book.Truncate: %w", err)
	}
	if err := os.Truncate(p, 0); err != nil {
		return fmt.Errorf("logbook.Book.Truncate %s: %w", id, err)
	}
	return nil
}

func encode(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	out := make([]byte, base64.StdEncoding.EncodedLen(buf.Len()))
	base64.StdEncoding.Encode(out, buf.Bytes())
	return out, nil
}

func decode(encoded []byte) ([]byte, error) {
	zipped := make([]byte, base64.StdEncoding.DecodedLen(len(encoded)))
	n, err := base64.StdEncoding.Decode(zipped, bytes.TrimSpace(encoded))
	if err != nil {
		return nil, err
	}
	zr, err := gzip.NewReader(bytes.NewReader(zipped[:n]))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

type RotationReport struct {
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Archived   []string          `json:"archived"`
	Skipped    []string          `json:"skipped,omitempty"`
	Failed     map[string]string `json:"failed,omitempty"`
	Err        error             `json:"-"`
}

func (r *RotationReport) fail(id string, err error) {
	if r.Failed == nil {
		r.Failed = make(map[string]string)
	}
	r.Failed[id] = err.Error()
	r.Err = multierr.Append(r.Err, err)
}

// Rotate archives and truncates every non-empty raw log. Empty raw logs are
// left in place without an archive and listed in Skipped. A failure on one id
// is recorded and rotation continues with the next.
func (b *Book) Rotate(ctx context.Context) RotationReport {
	rep := RotationReport{StartedAt: b.now().UTC()}

	ids, err := b.List(false)
	if err != nil {
		rep.fail("", err)
		b.logger.Warn("rotation_list_error", zap.Error(err))
		rep.FinishedAt = b.now().UTC()
		return rep
	}

	for _, id := range ids {
		archiveID, data, err := b.rotateOne(id)
		switch {
		case err != nil:
			b.logger.Warn("rotation_error", zap.String("log_id", id), zap.Error(err))
			rep.fail(id, err)
			continue
		case archiveID == "":
			rep.Skipped = append(rep.Skipped, id)
			continue
		}
		rep.Archived = append(rep.Archived, archiveID)

		if b.sink != nil {
			if err := b.sink.Upload(ctx, archiveID, data); err != nil {
				b.logger.Warn("rotation_offload_error", zap.String("archive_id", archiveID), zap.Error(err))
				rep.fail(id, fmt.Errorf("offload %s: %w", archiveID, err))
			}
		}
	}

	rep.FinishedAt = b.now().UTC()
	b.logger.Info("rotation_cycle_done",
		zap.Int("logs", len(ids)),
		zap.Int("archived", len(rep.Archived)),
		zap.Int("failed", len(rep.Failed)),
		zap.Duration("took", rep.FinishedAt.Sub(rep.StartedAt)),
	)
	return rep
}

// rotateOne compresses and truncates id while holding its lock. An empty log
// is left alone and reported with an empty archive id.
func (b *Book) rotateOne(id string) (string, []byte, error) {
	unlock := b.lock(id)
	defer unlock()

	p, err := b.path(id, rawSuffix)
	if err != nil {
		return "", nil, err
	}
	st, err := os.Stat(p)
	if err != nil {
		return "", nil, fmt.Errorf("logbook.Book.Rotate %s: %w", id, err)
	}
	if st.Size() == 0 {
		return "", nil, nil
	}

	archiveID := fmt.Sprintf("%s-%d", id, b.now().UnixMilli())
	data, err := b.compress(id, archiveID)
	if err != nil {
		return "", nil, err
	}
	if err := b.truncate(id); err != nil {
		return "", nil, err
	}
	return archiveID, data, nil
}
