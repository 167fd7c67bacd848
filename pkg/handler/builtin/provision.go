// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/stratastor/logger"
	"github.com/zonys/zonys/internal/command"
	"github.com/zonys/zonys/pkg/errors"
	"github.com/zonys/zonys/pkg/handler"
	"github.com/zonys/zonys/pkg/jail"
)

const (
	binPw  = "/usr/sbin/pw"
	binPkg = "/usr/sbin/pkg"
	binGit = "/usr/local/bin/git"
)

// Provision runs a list of provisioning actions against a freshly created
// zone's dataset, in after_create_zone. Each entry is either a bare string
// (a shell command) or a single-key map naming its action kind.
type Provision struct {
	JailAdapter jail.Adapter
	LogConfig   logger.Config
}

var _ handler.Committer = (*Provision)(nil)

func (*Provision) Key() string { return "provision" }

func (*Provision) Phases() []handler.Phase {
	return []handler.Phase{handler.PhaseAfterCreateZone}
}

func (p *Provision) Commit(ctx context.Context, _ handler.Phase, ev *handler.CommitEvent) (handler.RollbackFunc, error) {
	actions, _ := ev.Options["value"].([]any)
	if ev.Context.Zone == nil {
		return nil, errors.New(errors.HandlerInvalidConfiguration, "provision: no zone in context")
	}
	root := ev.Context.Zone.Path()

	for i, raw := range actions {
		if err := p.runAction(ctx, raw, root, ev.BasePath, ev.Context.Zone.ID().String()); err != nil {
			return nil, errors.Wrap(err, errors.HandlerInvalidConfiguration).
				WithMetadata("action_index", fmt.Sprintf("%d", i))
		}
	}
	return nil, nil
}

func (p *Provision) runAction(ctx context.Context, raw any, root, basePath, zoneName string) error {
	if s, ok := raw.(string); ok {
		return p.runCommand(ctx, s, root, zoneName)
	}

	m, ok := raw.(map[string]any)
	if !ok {
		return errors.New(errors.HandlerInvalidConfiguration, "provision: action must be a string or a mapping")
	}

	for kind, opts := range m {
		switch kind {
		case "command":
			cmd, _ := opts.(string)
			return p.runCommand(ctx, cmd, root, zoneName)
		case "archive":
			o := opts.(map[string]any)
			return provisionArchive(ctx, root, o)
		case "directory":
			o := opts.(map[string]any)
			return provisionDirectory(root, o)
		case "file":
			o := opts.(map[string]any)
			return provisionFile(root, o)
		case "git":
			o := opts.(map[string]any)
			return provisionGit(ctx, p.logger(), root, o)
		case "link":
			o := opts.(map[string]any)
			return provisionLink(root, o)
		case "package":
			list, _ := opts.([]any)
			return provisionPackage(ctx, p.logger(), root, list)
		case "path":
			o := opts.(map[string]any)
			return provisionPath(root, basePath, o)
		case "user":
			o := opts.(map[string]any)
			return provisionUser(ctx, p.logger(), root, o)
		default:
			return errors.New(errors.HandlerInvalidConfiguration, "provision: unknown action kind "+kind)
		}
	}
	return nil
}

func (p *Provision) logger() logger.Logger {
	l, err := logger.NewTag(p.LogConfig, "provision")
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}
	return l
}

// runCommand executes cmd inside a temporary jail rooted at root, matching
// the original's shell-like `command` action.
func (p *Provision) runCommand(ctx context.Context, cmd, root, zoneName string) error {
	return jail.Temporary(ctx, p.JailAdapter, p.LogConfig, zoneName, root, nil, func(j jail.Jail) error {
		_, err := j.Execute(ctx, "/bin/sh", "-c", cmd)
		return err
	})
}

// zonePath resolves an absolute in-zone path against root, as the
// original does by joining root with the path's components after its
// leading "/".
func zonePath(root, path string) (string, error) {
	if !filepath.IsAbs(path) {
		return "", errors.New(errors.HandlerInvalidConfiguration, "path must be absolute: "+path)
	}
	return filepath.Join(root, strings.TrimPrefix(path, "/")), nil
}

func provisionDirectory(root string, opts map[string]any) error {
	path, _ := opts["path"].(string)
	dst, err := zonePath(root, path)
	if err != nil {
		return err
	}
	return os.MkdirAll(dst, 0o755)
}

func provisionFile(root string, opts map[string]any) error {
	path, _ := opts["path"].(string)
	dst, err := zonePath(root, path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	if content, ok := opts["content"].(string); ok {
		if err := os.WriteFile(dst, []byte(content), 0o644); err != nil {
			return err
		}
	} else if _, err := os.OpenFile(dst, os.O_CREATE, 0o644); err != nil {
		return err
	}

	if prepend, ok := opts["prepend"].(string); ok {
		existing, err := os.ReadFile(dst)
		if err != nil {
			return err
		}
		if err := os.WriteFile(dst, append([]byte(prepend), existing...), 0o644); err != nil {
			return err
		}
	}

	if append_, ok := opts["append"].(string); ok {
		f, err := os.OpenFile(dst, os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := f.WriteString(append_); err != nil {
			return err
		}
	}

	return nil
}

func provisionLink(root string, opts map[string]any) error {
	source, _ := opts["source"].(string)
	destination, _ := opts["destination"].(string)
	if !filepath.IsAbs(source) {
		return errors.New(errors.HandlerInvalidConfiguration, "link: source must be absolute")
	}
	dst, err := zonePath(root, destination)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.Symlink(strings.TrimPrefix(source, "/"), dst)
}

func provisionPath(root, basePath string, opts map[string]any) error {
	source, _ := opts["source"].(string)
	destination, _ := opts["destination"].(string)
	dst, err := zonePath(root, destination)
	if err != nil {
		return err
	}
	if !filepath.IsAbs(source) {
		source = filepath.Join(basePath, source)
	}

	info, err := os.Stat(source)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return copyDirectory(source, dst)
	}
	return copyFile(source, dst)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func copyDirectory(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func provisionPackage(ctx context.Context, l logger.Logger, root string, names []any) error {
	pkgNames := make([]string, 0, len(names))
	for _, n := range names {
		if s, ok := n.(string); ok {
			pkgNames = append(pkgNames, s)
		}
	}
	if len(pkgNames) == 0 {
		return nil
	}
	args := append([]string{"-r", root, "install", "-y"}, pkgNames...)
	_, err := command.ExecCommand(ctx, l, binPkg, args...)
	return err
}

func provisionUser(ctx context.Context, l logger.Logger, root string, opts map[string]any) error {
	name, _ := opts["name"].(string)
	if name == "" {
		return errors.New(errors.HandlerInvalidConfiguration, "user: name is required")
	}

	args := []string{"user", "add", name, "-R", root}
	if shell, ok := opts["shell"].(string); ok {
		args = append(args, "-s", shell)
	}
	if comment, ok := opts["comment"].(string); ok {
		args = append(args, "-c", comment)
	}
	if home, ok := opts["home"].(string); ok {
		args = append(args, "-d", home)
	}

	_, err := command.ExecCommand(ctx, l, binPw, args...)
	return err
}

// provisionArchive fetches source (a local path or an http(s) URL) and
// unpacks it into destination, which is resolved under root. A source
// with no URL scheme is read straight off the local filesystem; otherwise
// it is downloaded to a temporary file first.
func provisionArchive(ctx context.Context, root string, opts map[string]any) error {
	source, _ := opts["source"].(string)
	destination, _ := opts["destination"].(string)

	dst, err := zonePath(root, destination)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}

	u, err := url.Parse(source)
	if err != nil {
		return errors.Wrap(err, errors.HandlerInvalidConfiguration)
	}

	archivePath := source
	if u.Scheme != "" && u.Host != "" {
		tmp, err := downloadArchive(ctx, source)
		if err != nil {
			return err
		}
		defer os.Remove(tmp)
		archivePath = tmp
	}

	switch {
	case strings.HasSuffix(archivePath, ".tar.gz"), strings.HasSuffix(archivePath, ".tgz"):
		return extractTarGz(archivePath, dst)
	case strings.HasSuffix(archivePath, ".tar"):
		return extractTar(archivePath, dst)
	case strings.HasSuffix(archivePath, ".zip"):
		return extractZip(archivePath, dst)
	default:
		return errors.New(errors.HandlerInvalidConfiguration, "archive: unsupported archive format "+archivePath)
	}
}

func downloadArchive(ctx context.Context, source string) (string, error) {
	client := &http.Client{Timeout: 5 * time.Minute}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.HandlerInvalidConfiguration)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, errors.HandlerInvalidConfiguration)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.New(errors.HandlerInvalidConfiguration, "archive: download failed with status "+resp.Status)
	}

	tmp, err := os.CreateTemp("", "zonys-archive-*"+filepath.Ext(source))
	if err != nil {
		return "", errors.Wrap(err, errors.HandlerInvalidConfiguration)
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		os.Remove(tmp.Name())
		return "", errors.Wrap(err, errors.HandlerInvalidConfiguration)
	}
	return tmp.Name(), nil
}

func extractTarGz(path, dst string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	return extractTarReader(tar.NewReader(gz), dst)
}

func extractTar(path, dst string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return extractTarReader(tar.NewReader(f), dst)
}

func extractTarReader(r *tar.Reader, dst string) error {
	for {
		hdr, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		target := filepath.Join(dst, hdr.Name)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(hdr.Mode)); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, r); err != nil {
				out.Close()
				return err
			}
			out.Close()
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		}
	}
}

func extractZip(path, dst string) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		target := filepath.Join(dst, f.Name)
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, f.Mode()); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode())
		if err != nil {
			rc.Close()
			return err
		}
		_, copyErr := io.Copy(out, rc)
		rc.Close()
		out.Close()
		if copyErr != nil {
			return copyErr
		}
	}
	return nil
}

func provisionGit(ctx context.Context, l logger.Logger, root string, opts map[string]any) error {
	url, _ := opts["url"].(string)
	path, _ := opts["path"].(string)
	dst, err := zonePath(root, path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	args := []string{"clone"}
	if object, ok := opts["object"].(string); ok {
		args = append(args, "--branch", object)
	}
	args = append(args, url, dst)

	_, err = command.ExecCommand(ctx, l, binGit, args...)
	return err
}
