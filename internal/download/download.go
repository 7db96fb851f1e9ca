// Package download fetches item assets into the upload directory under
// content-derived names.
package download

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"path/filepath"

	"cth/internal/hooks"
	"cth/internal/logfields"
	"cth/internal/util"
)

// HTTPClient is the subset of *http.Client used for fetching.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// FetchError reports an asset that could not be fetched. It is isolated to
// its item.
type FetchError struct {
	URL  string
	Err  error
	Hint string
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Status is the outcome of a Fetch.
type Status int

const (
	// Failed means nothing was written; the column keeps the fetch URL.
	Failed Status = iota
	// Cached means the target already existed and was reused.
	Cached
	// Downloaded means the asset was fetched and written.
	Downloaded
)

func (s Status) String() string {
	switch s {
	case Cached:
		return "cached"
	case Downloaded:
		return "downloaded"
	default:
		return "failed"
	}
}

// Result describes one asset.
type Result struct {
	Status Status
	// URL is the fetch URL after the pre hook.
	URL string
	// Name is the file name inside the upload directory.
	Name string
	// Path is the local file.
	Path string
	// PublicURL is the site URL of the asset.
	PublicURL string
	// Err is set when Status is Failed.
	Err *FetchError
}

// Downloader fetches assets into Dir.
type Downloader struct {
	Dir       string
	BaseURL   string
	Upload    string
	Overwrite bool
	Client    HTTPClient
	Hooks     hooks.DownloaderHooks
	Logger    *slog.Logger
}

// AssetName derives the upload file name for value under slug. The
// extension is taken from the URL path.
func AssetName(slug, value string) string {
	sum := md5.Sum([]byte(value))
	ext := ""
	if u, err := url.Parse(value); err == nil {
		ext = path.Ext(u.Path)
	} else {
		ext = path.Ext(value)
	}
	return slug + "-" + hex.EncodeToString(sum[:]) + ext
}

// Fetch resolves value for the item slug. Only errors from hooks and the
// context are returned; fetch failures are reported in the result.
func (d *Downloader) Fetch(ctx context.Context, slug, value string) (Result, error) {
	target, err := d.hooks().Pre(ctx, value)
	if err != nil {
		return Result{}, err
	}

	name := AssetName(slug, value)
	res := Result{
		URL:  target,
		Name: name,
		Path: filepath.Join(d.Dir, name),
	}
	public, err := url.JoinPath(d.BaseURL, d.Upload, name)
	if err != nil {
		return Result{}, fmt.Errorf("building asset url: %w", err)
	}
	res.PublicURL = public

	if !d.Overwrite && util.FileExists(res.Path) {
		d.logger().Debug("asset cached", logfields.Path(res.Path))
		res.Status = Cached
		return res, nil
	}

	if ferr := d.get(ctx, target, res.Path); ferr != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		d.logger().Warn("asset download failed",
			logfields.URL(target),
			logfields.Item(slug),
			logfields.Error(ferr))
		res.Status = Failed
		res.Err = ferr
		return res, nil
	}

	if err := d.hooks().Post(ctx, res.Path); err != nil {
		return Result{}, err
	}
	d.logger().Debug("asset downloaded", logfields.URL(target), logfields.Path(res.Path))
	res.Status = Downloaded
	return res, nil
}

func (d *Downloader) get(ctx context.Context, target, dst string) *FetchError {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &FetchError{URL: target, Err: err, Hint: "check the image column value"}
	}

	resp, err := d.client().Do(req)
	if err != nil {
		return &FetchError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &FetchError{URL: target, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &FetchError{URL: target, Err: err}
	}
	if err := util.WriteFileAtomic(dst, data, 0o644); err != nil {
		return &FetchError{URL: target, Err: err, Hint: "check permissions of the upload directory"}
	}
	return nil
}

func (d *Downloader) client() HTTPClient {
	if d.Client == nil {
		return http.DefaultClient
	}
	return d.Client
}

func (d *Downloader) hooks() hooks.DownloaderHooks {
	if d.Hooks == nil {
		return hooks.NopDownloader{}
	}
	return d.Hooks
}

func (d *Downloader) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}
