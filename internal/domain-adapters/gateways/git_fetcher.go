package gateways

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/semscan/semscan/internal/domain/entities"
	"github.com/semscan/semscan/internal/domain/interfaces"
	"github.com/semscan/semscan/internal/domain/interfaces/gateways"
)

// GitFetcher clones repositories with the git binary at depth 1 and
// checks out a specific revision.
type GitFetcher struct {
	cloneTimeout    time.Duration
	checkoutTimeout time.Duration
	logger          interfaces.Logger
}

// NewGitFetcher creates a new git fetcher with bounded timeouts for
// the clone and checkout operations.
func NewGitFetcher(cloneTimeout, checkoutTimeout time.Duration, logger interfaces.Logger) *GitFetcher {
	return &GitFetcher{
		cloneTimeout:    cloneTimeout,
		checkoutTimeout: checkoutTimeout,
		logger:          logger,
	}
}

// Fetch clones url into dir with shallow history and checks out
// revision. A revision unreachable at shallow depth is reported via
// FetchResult.Mismatch and the default branch head is used; clone
// failure and checkout failure of a present revision are fatal.
func (g *GitFetcher) Fetch(ctx context.Context, url, revision, dir string) (*gateways.FetchResult, error) {
	cloneCtx, cancel := context.WithTimeout(ctx, g.cloneTimeout)
	defer cancel()

	if out, err := g.run(cloneCtx, "", "clone", "--depth", "1", url, dir); err != nil {
		return nil, &entities.FetchError{Op: "clone", Err: wrapGitError(err, out)}
	}

	checkoutCtx, cancel := context.WithTimeout(ctx, g.checkoutTimeout)
	defer cancel()

	result := &gateways.FetchResult{}

	if out, err := g.run(checkoutCtx, dir, "checkout", revision); err != nil {
		// Distinguish a revision missing from the shallow history
		// (warn, stay on the default branch head) from a checkout
		// failure of an object we actually have (fatal).
		if g.revisionPresent(checkoutCtx, dir, revision) {
			return nil, &entities.FetchError{Op: "checkout", Err: wrapGitError(err, out)}
		}
		g.logger.Warn("revision not reachable in shallow clone, using default branch head",
			interfaces.F("revision", revision))
		result.Mismatch = true
	}

	head, err := g.headRevision(checkoutCtx, dir)
	if err != nil {
		return nil, &entities.FetchError{Op: "checkout", Err: err}
	}
	result.HeadRevision = head

	// Callers may pass a short hash; prefix comparison covers that.
	if !strings.HasPrefix(head, revision) {
		result.Mismatch = true
	}

	return result, nil
}

// revisionPresent reports whether the object exists in the cloned
// history at all.
func (g *GitFetcher) revisionPresent(ctx context.Context, dir, revision string) bool {
	_, err := g.run(ctx, dir, "cat-file", "-e", revision+"^{commit}")
	return err == nil
}

// headRevision resolves the commit the working tree is on.
func (g *GitFetcher) headRevision(ctx context.Context, dir string) (string, error) {
	out, err := g.run(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return "", wrapGitError(err, out)
	}
	return strings.TrimSpace(out), nil
}

// wrapGitError attaches the command's output to the error when there
// is any, since git writes the useful diagnostics to stderr.
func wrapGitError(err error, output string) error {
	output = strings.TrimSpace(output)
	if output == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, output)
}

// run executes a git subcommand, optionally inside dir, returning
// combined output.
func (g *GitFetcher) run(ctx context.Context, dir string, args ...string) (string, error) {
	gitArgs := args
	if dir != "" {
		gitArgs = append([]string{"-C", dir}, args...)
	}

	//nolint:gosec // G204: git arguments are built from validated request fields
	cmd := exec.CommandContext(ctx, "git", gitArgs...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	return out.String(), err
}
