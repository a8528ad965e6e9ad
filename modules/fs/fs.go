// Copyright 2025 Nhat-Nguyen Nguyen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fs stores uploaded photos on the local disk and serves them back.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"strings"

	"github.com/gofrs/uuid/v5"
)

// Config is read with the IMAGES_ prefix.
type Config struct {
	Root           string `env:"ROOT" envDefault:"./data/images"`
	PublicBaseURL  string `env:"PUBLIC_BASE_URL" envDefault:"/images"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
}

var ErrUnsupportedType = errors.New("unsupported image type")

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9-]+\.(jpg|png|gif|webp)$`)

// LocalFS keeps every file flat under one root. The file name doubles as the
// public id.
type LocalFS struct {
	root    *os.Root
	baseURL string
}

func NewLocalFS(cfg Config) (*LocalFS, error) {
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("fs: create root: %w", err)
	}
	root, err := os.OpenRoot(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("fs: open root: %w", err)
	}
	return &LocalFS{root: root, baseURL: strings.TrimRight(cfg.PublicBaseURL, "/")}, nil
}

// Save writes r to a fresh "<uuidv7><ext>" file. original is only logged.
func (l *LocalFS) Save(ctx context.Context, original, contentType string, r io.Reader) (string, string, error) {
	ext, ok := extensions[contentType]
	if !ok {
		return "", "", ErrUnsupportedType
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", "", err
	}
	name := id.String() + ext

	f, err := l.root.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", "", fmt.Errorf("fs: create %s: %w", name, err)
	}
	_, err = io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = l.root.Remove(name)
		return "", "", fmt.Errorf("fs: write %s: %w", name, err)
	}

	slog.DebugContext(ctx, "image stored", slog.String("name", name), slog.String("original", original))
	return l.baseURL + "/" + name, name, nil
}

// Delete removes publicID. A missing file is not an error.
func (l *LocalFS) Delete(_ context.Context, publicID string) error {
	if !namePattern.MatchString(publicID) {
		return fmt.Errorf("fs: invalid name %q", publicID)
	}
	err := l.root.Remove(publicID)
	if err != nil && !errors.Is(err, iofs.ErrNotExist) {
		return fmt.Errorf("fs: delete %s: %w", publicID, err)
	}
	return nil
}

// Handler serves GET /images/{name}.
func (l *LocalFS) Handler() http.Handler {
	fsys := l.root.FS()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		if !namePattern.MatchString(name) {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		http.ServeFileFS(w, r, fsys, name)
	})
}

func (l *LocalFS) Close() error {
	return l.root.Close()
}
