// # internal/update/detector.go

// Package update applies repository changes to a stored graph without a full
// re-analysis. The detector asks git what changed; the updater rewrites just
// the affected files inside one store transaction, guarded by a TTL lock.
package update

import (
	"bytes"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"aura/internal/core/errors"
)

const (
	ChangeAdded    = "added"
	ChangeModified = "modified"
	ChangeDeleted  = "deleted"
	ChangeRenamed  = "renamed"
)

// FileChange is one repository-relative change between two revisions.
// OldPath is set only for renames.
type FileChange struct {
	Path    string `json:"path"`
	OldPath string `json:"old_path,omitempty"`
	Type    string `json:"type"`
}

// Detector reads change sets from git.
type Detector struct {
	root string
	// renameSimilarity is the git -M threshold in percent; below it a
	// rename reports as delete plus add.
	renameSimilarity int
}

func NewDetector(root string, renameSimilarity int) *Detector {
	if renameSimilarity <= 0 || renameSimilarity > 100 {
		renameSimilarity = 50
	}
	return &Detector{root: root, renameSimilarity: renameSimilarity}
}

// HeadSHA returns the current commit hash.
func (d *Detector) HeadSHA() (string, error) {
	out, err := d.git("rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// ChangesSince diffs the working tree against a past revision. The result
// is sorted by path and stable across calls.
func (d *Detector) ChangesSince(sha string) ([]FileChange, error) {
	if strings.TrimSpace(sha) == "" {
		return nil, errors.New(errors.CodeValidationError, "base revision must not be empty")
	}
	out, err := d.git("diff", "--name-status", "-M"+strconv.Itoa(d.renameSimilarity)+"%", sha, "HEAD")
	if err != nil {
		return nil, err
	}
	changes := parseNameStatus(out)
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes, nil
}

// parseNameStatus reads `git diff --name-status` output: one change per
// line, status letter then tab-separated paths.
func parseNameStatus(out []byte) []FileChange {
	var changes []FileChange
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}
		status := parts[0]
		switch {
		case status == "A":
			changes = append(changes, FileChange{Path: parts[1], Type: ChangeAdded})
		case status == "M":
			changes = append(changes, FileChange{Path: parts[1], Type: ChangeModified})
		case status == "D":
			changes = append(changes, FileChange{Path: parts[1], Type: ChangeDeleted})
		case strings.HasPrefix(status, "R") && len(parts) >= 3:
			changes = append(changes, FileChange{OldPath: parts[1], Path: parts[2], Type: ChangeRenamed})
		case strings.HasPrefix(status, "C") && len(parts) >= 3:
			changes = append(changes, FileChange{Path: parts[2], Type: ChangeAdded})
		}
	}
	return changes
}

// LineDiff holds the line numbers a change touched in one file: added lines
// are numbered in the new revision, removed lines in the old one.
type LineDiff struct {
	Added   []int `json:"added"`
	Removed []int `json:"removed"`
}

// LinesChanged reports which lines of a file changed since a past revision.
// Used to decide whether a change is worth a partial re-analysis at all.
func (d *Detector) LinesChanged(sha, path string) (*LineDiff, error) {
	if strings.TrimSpace(sha) == "" {
		return nil, errors.New(errors.CodeValidationError, "base revision must not be empty")
	}
	out, err := d.git("diff", "--unified=0", sha, "HEAD", "--", path)
	if err != nil {
		return nil, err
	}
	return parseUnifiedHunks(out), nil
}

// parseUnifiedHunks reads the @@ -start,count +start,count @@ headers of a
// zero-context diff. Count defaults to 1 when omitted; 0 means pure
// insertion or deletion at that position.
func parseUnifiedHunks(out []byte) *LineDiff {
	diff := &LineDiff{}
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.HasPrefix(line, "@@ ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		oldStart, oldCount := parseHunkRange(fields[1])
		newStart, newCount := parseHunkRange(fields[2])
		for i := 0; i < oldCount; i++ {
			diff.Removed = append(diff.Removed, oldStart+i)
		}
		for i := 0; i < newCount; i++ {
			diff.Added = append(diff.Added, newStart+i)
		}
	}
	return diff
}

func parseHunkRange(field string) (start, count int) {
	field = strings.TrimLeft(field, "-+")
	numbers, countPart, hasCount := strings.Cut(field, ",")
	start, _ = strconv.Atoi(numbers)
	count = 1
	if hasCount {
		count, _ = strconv.Atoi(countPart)
	}
	return start, count
}

func (d *Detector) git(args ...string) ([]byte, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = d.root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, errors.Newf(errors.CodeUnavailable, "git %s: %s", strings.Join(args, " "), msg)
	}
	return stdout.Bytes(), nil
}
