package resume

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"careercatalyst/internal/blobstore"
)

const sniffLen = 512

// Upload is one incoming file.
type Upload struct {
	Reader io.Reader
	// Filename is the client-side name; only its extension is used.
	Filename string
	// MediaType is the declared content type, if any.
	MediaType string
}

// Store persists an upload under a fresh temporary key: a random UUID plus
// the original extension. No owner record is touched.
func (m *Manager) Store(ctx context.Context, upload Upload) (Location, error) {
	ext, err := m.checkUpload(upload)
	if err != nil {
		return Location{}, err
	}
	return m.write(ctx, uuid.NewString()+"."+ext, upload.Reader)
}

// checkUpload validates the extension and declared media type and returns
// the extension as uploaded, without the dot.
func (m *Manager) checkUpload(upload Upload) (string, error) {
	if upload.Reader == nil {
		return "", fmt.Errorf("%w: no content", ErrUnsupportedFileType)
	}
	ext := strings.TrimPrefix(filepath.Ext(strings.TrimSpace(upload.Filename)), ".")
	if ext == "" || strings.ContainsAny(ext, " /\\") {
		return "", fmt.Errorf("%w: missing extension in %q", ErrUnsupportedFileType, upload.Filename)
	}
	if _, ok := m.allowedExtensions[normalizeExtension(ext)]; !ok {
		return "", fmt.Errorf("%w: .%s", ErrUnsupportedFileType, ext)
	}
	declared := normalizeMediaType(upload.MediaType)
	if declared != "" && declared != genericMediaType {
		if _, ok := m.allowedMediaTypes[declared]; !ok {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, declared)
		}
	}
	return ext, nil
}

// write streams r into key, enforcing the size limit and content sniffing.
// Errors other than validation and cancellation are ErrStorageWriteFailure.
func (m *Manager) write(ctx context.Context, key string, r io.Reader) (Location, error) {
	buffered := bufio.NewReaderSize(r, sniffLen)
	head, err := buffered.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return Location{}, fmt.Errorf("%w: read upload: %v", ErrStorageWriteFailure, err)
	}
	if len(head) == 0 {
		return Location{}, fmt.Errorf("%w: empty file", ErrUnsupportedFileType)
	}
	if m.rejectMismatch {
		sniffed := normalizeMediaType(http.DetectContentType(head))
		if _, ok := m.allowedMediaTypes[sniffed]; !ok {
			return Location{}, fmt.Errorf("%w: content looks like %s", ErrUnsupportedFileType, sniffed)
		}
	}

	limited := &limitReader{r: buffered, remaining: m.maxBytes}
	res, err := m.blobs.Put(ctx, key, limited)
	if err != nil {
		switch {
		case errors.Is(err, ErrFileTooLarge):
			return Location{}, fmt.Errorf("%w: limit is %s", ErrFileTooLarge, humanize.IBytes(uint64(m.maxBytes)))
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return Location{}, err
		case errors.Is(err, blobstore.ErrInvalidKey):
			return Location{}, fmt.Errorf("%w: %v", ErrUnsupportedFileType, err)
		}
		return Location{}, fmt.Errorf("%w: %v", ErrStorageWriteFailure, err)
	}
	return Location{Key: res.Key, SizeBytes: res.SizeBytes}, nil
}

// limitReader fails with ErrFileTooLarge once more than remaining bytes are read.
type limitReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitReader) Read(p []byte) (int, error) {
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return 0, ErrFileTooLarge
	}
	return n, err
}
