package storage

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/valyala/fasthttp"
)

// StoredFile describes an upload after it has been written to disk.
type StoredFile struct {
	Name         string
	Path         string
	URL          string
	OriginalName string
	Size         int64
	ContentType  string
}

// Disk writes uploads under Dir and serves them from URLPrefix.
type Disk struct {
	Dir       string
	URLPrefix string
	now       func() time.Time
}

func NewDisk(dir, urlPrefix string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Disk{Dir: dir, URLPrefix: strings.TrimRight(urlPrefix, "/"), now: time.Now}, nil
}

// Save writes every file or none: on failure the ones already written are removed.
func (d *Disk) Save(files []*multipart.FileHeader) ([]StoredFile, error) {
	stored := make([]StoredFile, 0, len(files))
	for _, fh := range files {
		mime, err := sniff(fh)
		if err != nil {
			_ = d.Remove(stored)
			return nil, err
		}
		name, err := d.uniqueName(mime.Extension())
		if err != nil {
			_ = d.Remove(stored)
			return nil, err
		}
		dst := filepath.Join(d.Dir, name)
		if err := fasthttp.SaveMultipartFile(fh, dst); err != nil {
			_ = d.Remove(stored)
			return nil, fmt.Errorf("save %s: %w", fh.Filename, err)
		}
		stored = append(stored, StoredFile{
			Name:         name,
			Path:         dst,
			URL:          path.Join(d.URLPrefix, name),
			OriginalName: filepath.Base(fh.Filename),
			Size:         fh.Size,
			ContentType:  mime.String(),
		})
	}
	return stored, nil
}

// Remove deletes stored files, ignoring ones already gone.
func (d *Disk) Remove(files []StoredFile) error {
	var errs []error
	for _, f := range files {
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func sniff(fh *multipart.FileHeader) (*mimetype.MIME, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	m, err := mimetype.DetectReader(f)
	if err != nil {
		return nil, fmt.Errorf("detect type of %s: %w", fh.Filename, err)
	}
	return m, nil
}

// uniqueName builds images-<unix ms>-<random><ext>. ext comes from the sniffed
// content, never from the client's file name.
func (d *Disk) uniqueName(ext string) (string, error) {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("random name: %w", err)
	}
	return fmt.Sprintf("images-%d-%s%s", d.now().UnixMilli(), hex.EncodeToString(b[:]), strings.ToLower(ext)), nil
}
