package publishers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// gitPublisher commits the tracked pointer files and pushes them.
type gitPublisher struct {
	id     string
	cfg    GitPublisherConfig
	runner CommandRunner
	log    Logger
	statFn func(string) error
}

func newGitPublisher(runner CommandRunner) Builder {
	return func(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
		if runner == nil {
			runner = ExecRunner{}
		}
		gitCfg := GitPublisherConfig{Remote: gitDefaultRemote, Branch: gitDefaultBranch, Message: gitDefaultMessage}
		if cfg.Git != nil {
			gitCfg = *cfg.Git
		}
		return &gitPublisher{
			id:     cfg.ID,
			cfg:    gitCfg,
			runner: runner,
			log:    ensureLogger(log),
			statFn: func(p string) error { _, err := os.Stat(p); return err },
		}, nil
	}
}

func (g *gitPublisher) ID() string   { return g.id }
func (g *gitPublisher) Type() string { return TypeGit }

// Publish runs pull, add, commit and push. Nothing staged after add counts as
// success without a commit.
func (g *gitPublisher) Publish(ctx context.Context, evt Event) (string, error) {
	paths := g.paths(relativeTo(g.cfg.WorkDir, evt.OutputPath))
	if len(paths) == 0 {
		return "", fmt.Errorf("git publisher %q: nothing to add", g.id)
	}

	if g.cfg.Pull == nil || *g.cfg.Pull {
		if _, err := g.run(ctx, "pull", g.cfg.Remote, g.cfg.Branch); err != nil {
			return "", err
		}
	}

	addArgs := append([]string{"add", "--"}, paths...)
	if _, err := g.run(ctx, addArgs...); err != nil {
		return "", err
	}

	_, err := g.run(ctx, "diff", "--cached", "--quiet")
	if err == nil {
		return "nothing to commit", nil
	}
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) || cmdErr.ExitCode != 1 {
		return "", err
	}

	if _, err := g.run(ctx, "commit", "-m", g.cfg.Message); err != nil {
		return "", err
	}
	if _, err := g.run(ctx, "push", g.cfg.Remote, g.cfg.Branch); err != nil {
		return "", err
	}

	g.log.DebugObj("git publisher pushed commit", "publisher_git", map[string]any{
		"publisher_id": g.id,
		"paths":        paths,
		"remote":       g.cfg.Remote,
		"branch":       g.cfg.Branch,
	})
	return fmt.Sprintf("committed %d path(s) and pushed to %s/%s", len(paths), g.cfg.Remote, g.cfg.Branch), nil
}

func (g *gitPublisher) run(ctx context.Context, args ...string) ([]byte, error) {
	return g.runner.Run(ctx, g.cfg.WorkDir, "git", args...)
}

// paths returns the configured paths or, by default, the DVC pointer file and
// the .gitignore DVC maintains next to the output. Without a pointer file the
// output itself is committed.
func (g *gitPublisher) paths(output string) []string {
	if len(g.cfg.Paths) > 0 {
		return g.cfg.Paths
	}
	if output == "" {
		return nil
	}

	pointer := output + ".dvc"
	if g.exists(pointer) {
		paths := []string{pointer}
		if ignore := filepath.Join(filepath.Dir(output), ".gitignore"); g.exists(ignore) {
			paths = append(paths, ignore)
		}
		return paths
	}
	return []string{output}
}

func (g *gitPublisher) exists(p string) bool {
	if !filepath.IsAbs(p) && g.cfg.WorkDir != "" {
		p = filepath.Join(g.cfg.WorkDir, p)
	}
	return g.statFn(p) == nil
}
