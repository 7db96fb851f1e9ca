package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aymerick/raymond"
	"gopkg.in/yaml.v3"

	"cth/internal/records"
)

// Hook file names inside the hooks directory.
const (
	BuildFile      = "build.yaml"
	HelpersFile    = "helpers.yaml"
	DownloaderFile = "downloader.yaml"
)

type step struct {
	Command Command `yaml:"command"`
}

type eachStep struct {
	Set     map[string]string `yaml:"set"`
	Command Command           `yaml:"command"`
}

type buildFile struct {
	Pre  *step     `yaml:"pre"`
	Each *eachStep `yaml:"each"`
	Post *step     `yaml:"post"`
}

type downloaderPre struct {
	Rewrite string  `yaml:"rewrite"`
	Command Command `yaml:"command"`
}

type downloaderFile struct {
	Pre  *downloaderPre `yaml:"pre"`
	Post *step          `yaml:"post"`
}

// Load builds the hook set for a project. Each capability whose file is
// absent from dir keeps its default. Commands run with workDir as their
// working directory.
func Load(dir, workDir string) (Set, error) {
	set := Defaults()

	var bf buildFile
	found, err := decodeFile(filepath.Join(dir, BuildFile), &bf)
	if err != nil {
		return Set{}, err
	}
	if found {
		set.Build = &fileBuild{dir: workDir, conf: bf}
	}

	var helpers map[string]string
	found, err = decodeFile(filepath.Join(dir, HelpersFile), &helpers)
	if err != nil {
		return Set{}, err
	}
	if found {
		set.Helpers = StaticHelpers(helpers)
	}

	var df downloaderFile
	found, err = decodeFile(filepath.Join(dir, DownloaderFile), &df)
	if err != nil {
		return Set{}, err
	}
	if found {
		set.Downloader = &fileDownloader{dir: workDir, conf: df}
	}

	return set, nil
}

func decodeFile(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading hook file %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("parsing hook file %s: %w", path, err)
	}
	return true, nil
}

// StaticHelpers is a fixed helper table.
type StaticHelpers map[string]string

func (h StaticHelpers) Helpers() map[string]string { return h }

// fileBuild implements BuildHooks from hooks/build.yaml.
type fileBuild struct {
	dir  string
	conf buildFile
}

func (b *fileBuild) Pre(ctx context.Context, rows []records.Row) ([]records.Row, error) {
	if b.conf.Pre == nil || b.conf.Pre.Command.empty() {
		return rows, nil
	}
	return b.pipeRows(ctx, "build.pre", b.conf.Pre.Command, rows)
}

func (b *fileBuild) Post(ctx context.Context, rows []records.Row) ([]records.Row, error) {
	if b.conf.Post == nil || b.conf.Post.Command.empty() {
		return rows, nil
	}
	return b.pipeRows(ctx, "build.post", b.conf.Post.Command, rows)
}

func (b *fileBuild) Each(ctx context.Context, row records.Row) (records.Row, error) {
	each := b.conf.Each
	if each == nil {
		return row, nil
	}

	if len(each.Set) > 0 {
		out := row.Clone()
		data := map[string]any{"item": row}
		for col, tpl := range each.Set {
			v, err := raymond.Render(tpl, data)
			if err != nil {
				return nil, fmt.Errorf("hook build.each: set %s: %w", col, err)
			}
			out[col] = v
		}
		row = out
	}

	if each.Command.empty() {
		return row, nil
	}
	in, err := json.Marshal(row)
	if err != nil {
		return nil, err
	}
	stdout, err := each.Command.run(ctx, "build.each", b.dir, in, nil)
	if err != nil {
		return nil, err
	}
	var out records.Row
	if err := json.Unmarshal(stdout, &out); err != nil {
		return nil, fmt.Errorf("hook build.each: decoding output: %w", err)
	}
	return out, nil
}

func (b *fileBuild) pipeRows(ctx context.Context, hook string, cmd Command, rows []records.Row) ([]records.Row, error) {
	if rows == nil {
		rows = []records.Row{}
	}
	in, err := json.Marshal(rows)
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.run(ctx, hook, b.dir, in, nil)
	if err != nil {
		return nil, err
	}
	var out []records.Row
	if err := json.Unmarshal(stdout, &out); err != nil {
		return nil, fmt.Errorf("hook %s: decoding output: %w", hook, err)
	}
	return out, nil
}

// fileDownloader implements DownloaderHooks from hooks/downloader.yaml.
type fileDownloader struct {
	dir  string
	conf downloaderFile
}

func (d *fileDownloader) Pre(ctx context.Context, url string) (string, error) {
	pre := d.conf.Pre
	if pre == nil {
		return url, nil
	}
	if pre.Rewrite != "" {
		v, err := raymond.Render(pre.Rewrite, map[string]any{"url": url})
		if err != nil {
			return "", fmt.Errorf("hook downloader.pre: rewrite: %w", err)
		}
		url = v
	}
	if pre.Command.empty() {
		return url, nil
	}
	stdout, err := pre.Command.run(ctx, "downloader.pre", d.dir, []byte(url), nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(stdout)), nil
}

func (d *fileDownloader) Post(ctx context.Context, localPath string) error {
	post := d.conf.Post
	if post == nil || post.Command.empty() {
		return nil
	}
	_, err := post.Command.run(ctx, "downloader.post", d.dir, nil, []string{localPath}, "CTH_ASSET="+localPath)
	return err
}
