// Package gitinfo reads last-update metadata for documents from the Git
// history of the repository that contains the site.
package gitinfo

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"git.home.luguber.info/inful/docsite/internal/docs"
	"git.home.luguber.info/inful/docsite/internal/logfields"
)

// ErrNotRepository indicates the site is not inside a Git work tree.
var ErrNotRepository = errors.New("not a git repository")

// Info is the last commit that touched a file.
type Info struct {
	At     time.Time
	Author string
	Hash   string
}

// Repo answers last-update queries for files in one work tree.
type Repo struct {
	repo *git.Repository
	root string
}

// Open finds the repository containing dir, searching parent directories.
func Open(dir string) (*Repo, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, dir)
		}
		return nil, fmt.Errorf("open repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotRepository, err)
	}
	root, err := filepath.EvalSymlinks(wt.Filesystem.Root())
	if err != nil {
		root = wt.Filesystem.Root()
	}
	return &Repo{repo: repo, root: root}, nil
}

// LastUpdate returns the most recent commit touching path. ok is false for untracked files.
func (r *Repo) LastUpdate(path string) (Info, bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Info{}, false, err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	rel, err := filepath.Rel(r.root, abs)
	if err != nil {
		return Info{}, false, err
	}
	rel = filepath.ToSlash(rel)

	head, err := r.repo.Head()
	if err != nil {
		// An empty repository has no history yet.
		return Info{}, false, nil
	}
	iter, err := r.repo.Log(&git.LogOptions{From: head.Hash(), FileName: &rel, Order: git.LogOrderCommitterTime})
	if err != nil {
		return Info{}, false, fmt.Errorf("git log %s: %w", rel, err)
	}
	defer iter.Close()

	c, err := iter.Next()
	if errors.Is(err, io.EOF) {
		return Info{}, false, nil
	}
	if err != nil {
		return Info{}, false, fmt.Errorf("git log %s: %w", rel, err)
	}
	return infoFrom(c), true, nil
}

func infoFrom(c *object.Commit) Info {
	return Info{At: c.Committer.When.UTC(), Author: c.Author.Name, Hash: c.Hash.String()}
}

// Apply fills LastUpdatedAt and LastUpdatedBy for every doc tracked in the repository.
// Lookup failures are logged and leave the doc unchanged.
func (r *Repo) Apply(set *docs.Set) {
	for _, d := range set.Docs {
		info, ok, err := r.LastUpdate(d.Path)
		if err != nil {
			slog.Warn("Failed to read git history", logfields.DocID(d.ID), logfields.Error(err))
			continue
		}
		if !ok {
			continue
		}
		d.LastUpdatedAt = info.At.Unix()
		d.LastUpdatedBy = info.Author
	}
}
