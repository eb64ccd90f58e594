package web

import (
	"crypto/sha256"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// CachedFileInfo holds metadata for a static file used in HTTP cache headers.
type CachedFileInfo struct {
	ETag         string
	Size         int64
	LastModified time.Time
}

// StaticCache serves an embedded filesystem with ETag revalidation.
type StaticCache struct {
	fileLock sync.RWMutex
	entries  map[string]CachedFileInfo
	fs       fs.FS
}

// NewStaticCache scans fsys and computes ETag and Last-Modified for each file.
func NewStaticCache(fsys fs.FS) (*StaticCache, error) {
	c := &StaticCache{
		entries: make(map[string]CachedFileInfo),
		fs:      fsys,
	}

	c.fileLock.Lock()
	defer c.fileLock.Unlock()

	// embedded files carry no mod time
	started := time.Now().UTC().Truncate(time.Second)

	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		f, err := fsys.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return err
		}

		h := sha256.New()
		if _, err := io.Copy(h, f); err != nil {
			return err
		}
		modTime := info.ModTime()
		if modTime.IsZero() {
			modTime = started
		}

		c.entries[path] = CachedFileInfo{
			ETag:         fmt.Sprintf("\"%x\"", h.Sum(nil)),
			Size:         info.Size(),
			LastModified: modTime,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *StaticCache) lookup(path string) (CachedFileInfo, bool) {
	s.fileLock.RLock()
	defer s.fileLock.RUnlock()
	ci, ok := s.entries[path]
	return ci, ok
}

// ServeFile serves one file of the cache, answering 304 to up-to-date clients.
func (s *StaticCache) ServeFile(c echo.Context, path string) error {
	ci, ok := s.lookup(path)
	if !ok {
		return echo.ErrNotFound
	}
	if inm := c.Request().Header.Get("If-None-Match"); inm != "" && inm == ci.ETag {
		return c.NoContent(http.StatusNotModified)
	}

	// dist assets are not fingerprinted
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache, must-revalidate")
	c.Response().Header().Set("ETag", ci.ETag)
	c.Response().Header().Set(echo.HeaderLastModified, ci.LastModified.Format(http.TimeFormat))

	f, err := s.fs.Open(path)
	if err != nil {
		return echo.ErrNotFound
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return c.Stream(http.StatusOK, contentType, f)
}

// ServeStaticFile serves files below /static/.
func (s *StaticCache) ServeStaticFile() echo.HandlerFunc {
	return func(c echo.Context) error {
		return s.ServeFile(c, strings.TrimPrefix(c.Request().URL.Path, "/static/"))
	}
}
