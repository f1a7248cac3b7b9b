package worker

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Fetch failure classification. Callers match with errors.Is.
var (
	ErrInvalidURL = errors.New("invalid repository url")
	ErrAuthFailed = errors.New("repository authentication failed")
	ErrNotFound   = errors.New("repository not found")
	ErrTransport  = errors.New("repository transport error")
)

// CloneError carries a user-safe message for the job record and the raw
// wrapped error for logs. The raw error is already credential-redacted.
type CloneError struct {
	Kind        error
	UserMessage string
	RawError    error
}

func (e *CloneError) Error() string {
	return e.UserMessage
}

func (e *CloneError) Unwrap() error {
	return e.RawError
}

func (e *CloneError) Is(target error) bool {
	return target == e.Kind
}

// ParseRepoURL extracts owner and repo from an https or git@ repository
// URL. Anything without both path segments is rejected before a clone
// subprocess is ever started.
func ParseRepoURL(repoURL string) (owner, repo string, err error) {
	if repoURL == "" {
		return "", "", &CloneError{Kind: ErrInvalidURL, UserMessage: "repository url must not be empty"}
	}

	if strings.HasPrefix(repoURL, "git@") {
		// git@host:owner/repo.git
		pathPart := repoURL[strings.Index(repoURL, ":")+1:]
		parts := strings.Split(strings.Trim(pathPart, "/"), "/")
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return "", "", &CloneError{Kind: ErrInvalidURL, UserMessage: "repository url must include owner/repo"}
		}
		return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
	}

	if !strings.HasPrefix(repoURL, "https://") {
		return "", "", &CloneError{Kind: ErrInvalidURL, UserMessage: "repository url must use https:// or git@"}
	}

	u, err := url.Parse(repoURL)
	if err != nil {
		return "", "", &CloneError{Kind: ErrInvalidURL, UserMessage: "repository url could not be parsed", RawError: err}
	}
	if u.Host == "" {
		return "", "", &CloneError{Kind: ErrInvalidURL, UserMessage: "repository url is missing a host"}
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &CloneError{Kind: ErrInvalidURL, UserMessage: "repository url must include owner/repo"}
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}

// CloneRepo performs a shallow clone into a uniquely named directory under
// baseDir and returns the directory path. On any failure the partial
// directory is removed before returning. When token is set it is embedded
// only in the in-process clone URL; it never reaches logs or error text.
// Anonymous clones never prompt for credentials: the worker has no
// terminal attached, so a prompt would hang forever.
func CloneRepo(ctx context.Context, analysisID int64, repoURL, token, baseDir string, timeout time.Duration) (string, error) {
	host, cloneURL := repoURL, repoURL
	if strings.HasPrefix(repoURL, "https://") {
		owner, repo, err := ParseRepoURL(repoURL)
		if err != nil {
			return "", err
		}
		u, _ := url.Parse(repoURL)
		host = u.Host
		if token != "" {
			cloneURL = fmt.Sprintf("https://x-access-token:%s@%s/%s/%s.git", token, host, owner, repo)
		} else {
			cloneURL = fmt.Sprintf("https://%s/%s/%s.git", host, owner, repo)
		}
	} else if _, _, err := ParseRepoURL(repoURL); err != nil {
		return "", err
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return "", &CloneError{
			Kind:        ErrTransport,
			UserMessage: "failed to prepare clone workspace",
			RawError:    fmt.Errorf("failed to create clone base dir: %w", err),
		}
	}

	dir := filepath.Join(baseDir, fmt.Sprintf("gitinsight_%d_%s", analysisID, uuid.NewString()[:8]))

	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	cloneCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{}
	if token == "" {
		args = append(args, "-c", "credential.helper=")
	}
	args = append(args, "clone", "--depth", "1", "--quiet", cloneURL, dir)

	cmd := exec.CommandContext(cloneCtx, "git", args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	output, err := cmd.CombinedOutput()
	if err != nil {
		os.RemoveAll(dir)
		return "", classifyCloneError(redact(string(output), token), redactErr(err, token))
	}

	return dir, nil
}

// classifyCloneError maps git output to the fetch error taxonomy.
func classifyCloneError(output string, err error) *CloneError {
	lower := strings.ToLower(output + " " + err.Error())

	switch {
	case strings.Contains(lower, "repository not found") ||
		strings.Contains(lower, "not found"):
		return &CloneError{
			Kind:        ErrNotFound,
			UserMessage: "repository not found or access denied",
			RawError:    fmt.Errorf("%w, output: %s", err, output),
		}
	case strings.Contains(lower, "authentication failed") ||
		strings.Contains(lower, "could not read username") ||
		strings.Contains(lower, "invalid username or password") ||
		strings.Contains(lower, "permission denied") ||
		strings.Contains(lower, "403"):
		return &CloneError{
			Kind:        ErrAuthFailed,
			UserMessage: "repository access was denied; it may be private",
			RawError:    fmt.Errorf("%w, output: %s", err, output),
		}
	default:
		return &CloneError{
			Kind:        ErrTransport,
			UserMessage: "failed to clone repository",
			RawError:    fmt.Errorf("%w, output: %s", err, output),
		}
	}
}

func redact(s, token string) string {
	if token == "" {
		return s
	}
	return strings.ReplaceAll(s, token, "[REDACTED]")
}

func redactErr(err error, token string) error {
	if token == "" || err == nil {
		return err
	}
	return errors.New(redact(err.Error(), token))
}

// CleanupRepo removes a clone directory. It refuses anything that does not
// look like one of our own clone dirs so a corrupted path can never delete
// unrelated data.
func CleanupRepo(dir string) error {
	if dir == "" {
		return nil
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	if !strings.HasPrefix(filepath.Base(absDir), "gitinsight_") {
		return fmt.Errorf("refusing to delete non-clone directory: %s", absDir)
	}

	return os.RemoveAll(absDir)
}
