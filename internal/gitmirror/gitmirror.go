// Package gitmirror mirrors single commits into bot-owned branches by
// shelling out to git.
// Credentials are expected to be supplied via the environment, e.g. through
// GIT_ASKPASS or a credential helper.
package gitmirror

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/simplesurance/pulljoy/internal/logfields"
)

const loggerName = "git_mirror"

const DefTimeout = 10 * time.Minute

const defRemoteURLFmt = "https://github.com/%s.git"

type Mirror struct {
	logger       *zap.Logger
	workDir      string
	timeout      time.Duration
	remoteURLFmt string
}

type Option func(*Mirror)

// WithWorkDir sets the directory under which temporary clone directories are
// created. Defaults to the OS temp dir.
func WithWorkDir(dir string) Option {
	return func(m *Mirror) {
		m.workDir = dir
	}
}

// WithTimeout limits the total duration of one Mirror() call.
func WithTimeout(timeout time.Duration) Option {
	return func(m *Mirror) {
		m.timeout = timeout
	}
}

// WithRemoteURLFormat overrides the printf format that maps a repository
// full-name to a git remote URL.
func WithRemoteURLFormat(format string) Option {
	return func(m *Mirror) {
		m.remoteURLFmt = format
	}
}

func New(opts ...Option) *Mirror {
	m := Mirror{
		timeout:      DefTimeout,
		remoteURLFmt: defRemoteURLFmt,
	}

	for _, o := range opts {
		o(&m)
	}

	if m.logger == nil {
		m.logger = zap.L().Named(loggerName)
	}

	return &m
}

// Mirror fetches commitSHA from sourceRepo and force-pushes it to
// targetBranch on targetRepo.
// Force-push semantics make repeated calls for the same branch converge to
// the latest mirrored commit, prior mirrored state is discarded.
// On a non-zero git exit status an error containing the combined
// stdout/stderr output of the failed command is returned.
func (m *Mirror) Mirror(ctx context.Context, sourceRepo, commitSHA, targetRepo, targetBranch string) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	dir, err := os.MkdirTemp(m.workDir, "pulljoy-mirror-*")
	if err != nil {
		return fmt.Errorf("creating git work dir failed: %w", err)
	}

	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			m.logger.Warn(
				"removing git work dir failed",
				logfields.Event("git_work_dir_removal_failed"),
				zap.String("git_work_dir", dir),
				zap.Error(rmErr),
			)
		}
	}()

	logger := m.logger.With(
		logfields.Commit(commitSHA),
		logfields.Branch(targetBranch),
		zap.String("git.source_repository", sourceRepo),
		zap.String("git.target_repository", targetRepo),
	)

	sourceURL := fmt.Sprintf(m.remoteURLFmt, sourceRepo)
	targetURL := fmt.Sprintf(m.remoteURLFmt, targetRepo)

	cmds := [][]string{
		{"git", "init", "--quiet", dir},
		{"git", "-C", dir, "fetch", "--quiet", "--no-tags", sourceURL, commitSHA},
		{"git", "-C", dir, "push", "--quiet", "--force", targetURL, commitSHA + ":refs/heads/" + targetBranch},
	}

	for _, args := range cmds {
		if err := m.run(ctx, args); err != nil {
			return err
		}
	}

	logger.Info(
		"commit mirrored to branch",
		logfields.Event("git_commit_mirrored"),
	)

	return nil
}

func (m *Mirror) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)

	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("running %q aborted: %w, output: %q", strings.Join(args, " "), ctxErr, out)
		}

		return fmt.Errorf("running %q failed: %w, output: %q", strings.Join(args, " "), err, out)
	}

	return nil
}
