package artifact

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	getter "github.com/hashicorp/go-getter/v2"
	"github.com/mediatechnologycenter/api-commons/pkg/observability"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrNotADirectory is returned when the download directory is a file.
var ErrNotADirectory = errors.New("download dir is not a directory")

type Options struct {
	// Unpack extracts the artifact as an archive into the download
	// directory. The archive is expected to hold a single top-level
	// directory named after the archive stem.
	Unpack bool
}

// Downloader fetches model weights and other artifacts once, skipping
// artifacts that are already present in the target directory.
type Downloader struct {
	cfg Config
	log *zap.Logger
}

func NewDownloader(cfg Config, log *zap.Logger) *Downloader {
	return &Downloader{cfg: cfg, log: log}
}

// DownloadIfNotExists downloads rawURL into dir unless it is already there
// and returns the local path: the file for plain artifacts, the
// <dir>/<stem> directory for archives.
func (d *Downloader) DownloadIfNotExists(ctx context.Context, rawURL, dir string, opts Options) (localPath string, err error) {
	ctx, end := observability.WithSpan(ctx, "artifact.download", trace.WithAttributes(
		attribute.String("artifact.dir", dir),
		attribute.Bool("artifact.unpack", opts.Unpack),
	))
	defer func() { end(err) }()

	return d.download(ctx, rawURL, dir, opts)
}

func (d *Downloader) download(ctx context.Context, rawURL, dir string, opts Options) (string, error) {
	if err := ensureDir(dir); err != nil {
		return "", err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid artifact url %q: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return "", fmt.Errorf("artifact url %q has no file name", rawURL)
	}
	filePath := filepath.Join(dir, name)
	log := d.log.With(zap.String("url", u.Redacted()), zap.String("dir", dir))

	if !opts.Unpack {
		if isFile(filePath) {
			log.Info("artifact already exists", zap.String("path", filePath))
			return filePath, nil
		}
		log.Info("downloading artifact", zap.String("path", filePath))
		if err := d.get(ctx, u, filePath, getter.ModeFile, false); err != nil {
			_ = os.Remove(filePath)
			return "", err
		}
		return filePath, nil
	}

	unpacked := filepath.Join(dir, StemArchiveName(name))
	if isDir(unpacked) || isFile(unpacked) {
		log.Info("artifact already unpacked", zap.String("path", unpacked))
		return unpacked, nil
	}
	log.Info("downloading and unpacking artifact", zap.String("path", unpacked))
	if err := d.get(ctx, u, dir, getter.ModeDir, true); err != nil {
		return "", err
	}
	return unpacked, nil
}

func (d *Downloader) get(ctx context.Context, u *url.URL, dst string, mode getter.Mode, unpack bool) error {
	src := *u
	src.User = nil
	if unpack && !hasArchiveSuffix(src.Path) {
		q := src.Query()
		q.Set("archive", "tar")
		src.RawQuery = q.Encode()
	}

	client := d.newClient(u, unpack)
	_, err := client.Get(ctx, &getter.Request{
		Src:              src.String(),
		Dst:              dst,
		GetMode:          mode,
		ProgressListener: &progressLogger{log: d.log},
	})
	if err != nil {
		return fmt.Errorf("failed to download artifact %s: %w", u.Redacted(), err)
	}
	return nil
}

func (d *Downloader) newClient(u *url.URL, unpack bool) *getter.Client {
	header := http.Header{}
	username, password := d.cfg.Username, d.cfg.Password
	if u.User != nil {
		username = u.User.Username()
		password, _ = u.User.Password()
	}
	if username != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		header.Set("Authorization", "Basic "+credentials)
	}

	httpGetter := &getter.HttpGetter{Header: header}
	decompressors := map[string]getter.Decompressor{}
	if unpack {
		decompressors = getter.Decompressors
	}

	return &getter.Client{
		Getters:       []getter.Getter{httpGetter, new(getter.FileGetter)},
		Decompressors: decompressors,
	}
}

// StemArchiveName strips every extension from the base name of p, so
// "models/bert.tar.gz" becomes "bert".
func StemArchiveName(p string) string {
	base := filepath.Base(p)
	if i := strings.Index(base, "."); i > 0 {
		return base[:i]
	}
	return base
}

func hasArchiveSuffix(p string) bool {
	return lo.SomeBy(lo.Keys(getter.Decompressors), func(ext string) bool {
		return strings.HasSuffix(p, "."+ext)
	})
}

func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create download dir: %w", err)
		}
		return nil
	case err != nil:
		return err
	case !info.IsDir():
		return fmt.Errorf("%w: %s", ErrNotADirectory, dir)
	}
	return nil
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
