// Package patch applies unified-diff text (as produced by `git diff` or
// `diff -u`) against a source tree. No corpus example imports a
// unified-diff library, so this is a hand-rolled parser/applier covering
// the single-file hunk format the rockspec `patches` table declares
// (grounded on original_source's build/patch.rs, which wraps the Rust
// `diffy` crate with the same /dev/null create/delete convention).
package patch

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ParseError reports a malformed unified diff.
type ParseError struct {
	Name   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("error parsing patch %s: %s", e.Name, e.Reason)
}

// ApplyError reports a hunk whose context didn't match the target file.
type ApplyError struct {
	Name   string
	Reason string
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("error applying patch %s: %s", e.Name, e.Reason)
}

// hunk is one @@ -a,b +c,d @@ block.
type hunk struct {
	origStart int
	lines     []hunkLine
}

type hunkLine struct {
	kind rune // ' ', '-', '+'
	text string
}

// file is one `--- a/X` / `+++ b/Y` section of a diff.
type file struct {
	origPath string // "" means /dev/null (file creation)
	newPath  string // "" means /dev/null (file deletion)
	hunks    []hunk
}

// parse splits unified-diff text into per-file sections. It tolerates a
// leading `diff --git` / `index` preamble (as git produces) as well as a
// bare `---`/`+++` pair.
func parse(name, text string) ([]file, error) {
	lines := strings.Split(text, "\n")
	var files []file
	var cur *file
	var curHunk *hunk

	flushHunk := func() {
		if cur != nil && curHunk != nil {
			cur.hunks = append(cur.hunks, *curHunk)
			curHunk = nil
		}
	}
	flushFile := func() {
		flushHunk()
		if cur != nil {
			files = append(files, *cur)
			cur = nil
		}
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		switch {
		case strings.HasPrefix(line, "--- "):
			flushFile()
			cur = &file{}
			cur.origPath = stripDiffPathPrefix(strings.TrimSpace(strings.TrimPrefix(line, "--- ")))
		case strings.HasPrefix(line, "+++ "):
			if cur == nil {
				return nil, &ParseError{Name: name, Reason: "+++ header with no preceding --- header"}
			}
			cur.newPath = stripDiffPathPrefix(strings.TrimSpace(strings.TrimPrefix(line, "+++ ")))
		case strings.HasPrefix(line, "@@ "):
			if cur == nil {
				return nil, &ParseError{Name: name, Reason: "hunk header with no preceding file header"}
			}
			flushHunk()
			start, err := parseHunkHeader(line)
			if err != nil {
				return nil, &ParseError{Name: name, Reason: err.Error()}
			}
			curHunk = &hunk{origStart: start}
		case curHunk != nil && (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "-") || strings.HasPrefix(line, "+")):
			curHunk.lines = append(curHunk.lines, hunkLine{kind: rune(line[0]), text: line[1:]})
		case curHunk != nil && line == "":
			curHunk.lines = append(curHunk.lines, hunkLine{kind: ' ', text: ""})
		default:
			// preamble lines (diff --git, index, new/deleted file mode, etc.)
		}
	}
	flushFile()

	if len(files) == 0 {
		return nil, &ParseError{Name: name, Reason: "no file headers found"}
	}
	return files, nil
}

// stripDiffPathPrefix drops the leading a/ or b/ component git adds, and
// normalizes /dev/null.
func stripDiffPathPrefix(p string) string {
	if idx := strings.Index(p, "\t"); idx >= 0 {
		p = p[:idx]
	}
	if p == "/dev/null" {
		return ""
	}
	parts := strings.SplitN(p, "/", 2)
	if len(parts) == 2 {
		return parts[1]
	}
	return p
}

func parseHunkHeader(line string) (int, error) {
	// @@ -orig_start,orig_len +new_start,new_len @@ [section]
	rest := strings.TrimPrefix(line, "@@ ")
	fields := strings.Fields(rest)
	if len(fields) < 1 || !strings.HasPrefix(fields[0], "-") {
		return 0, errors.New("malformed hunk header")
	}
	spec := strings.TrimPrefix(fields[0], "-")
	startStr := strings.SplitN(spec, ",", 2)[0]
	start, err := strconv.Atoi(startStr)
	if err != nil {
		return 0, errors.Wrap(err, "malformed hunk start line number")
	}
	return start, nil
}

// Apply parses unified-diff text and applies every file section rooted
// at dir, following the same rules as original_source's patch.rs: a
// /dev/null original means file creation, a /dev/null target means file
// deletion, and hunks must match their context exactly.
func Apply(dir, name, diffText string) error {
	files, err := parse(name, diffText)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := applyFile(dir, name, f); err != nil {
			return err
		}
	}
	return nil
}

func applyFile(dir, name string, f file) error {
	var origContent string
	var origPath string
	if f.origPath != "" {
		origPath = filepath.Join(dir, f.origPath)
		data, err := os.ReadFile(origPath)
		if err != nil {
			return errors.Wrapf(err, "patch %s: reading original file %s", name, origPath)
		}
		origContent = string(data)
	}

	if f.newPath == "" {
		// deletion
		if origPath == "" {
			return &ApplyError{Name: name, Reason: "both original and target are /dev/null"}
		}
		if err := os.Remove(origPath); err != nil {
			return errors.Wrapf(err, "patch %s: deleting file %s", name, origPath)
		}
		return nil
	}

	newContent, err := applyHunks(origContent, f.hunks)
	if err != nil {
		return &ApplyError{Name: name, Reason: err.Error()}
	}

	destPath := filepath.Join(dir, f.newPath)
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return errors.Wrapf(err, "patch %s: creating directory for %s", name, destPath)
	}
	if err := os.WriteFile(destPath, []byte(newContent), 0o644); err != nil {
		return errors.Wrapf(err, "patch %s: writing modified file %s", name, destPath)
	}
	return nil
}

// applyHunks reconstructs the modified text by walking origLines and
// splicing in each hunk's +/- lines at its declared start, verifying
// context (' ') and deleted ('-') lines match what's actually there.
func applyHunks(orig string, hunks []hunk) (string, error) {
	origLines := strings.Split(orig, "\n")
	if orig == "" {
		origLines = nil
	}

	var out []string
	cursor := 0 // 0-based index into origLines already consumed

	for _, h := range hunks {
		start := h.origStart - 1
		if start < 0 {
			start = 0
		}
		if start > len(origLines) {
			return "", errors.Errorf("hunk start %d beyond end of file (%d lines)", h.origStart, len(origLines))
		}
		out = append(out, origLines[cursor:start]...)
		cursor = start

		for _, hl := range h.lines {
			switch hl.kind {
			case ' ':
				if cursor >= len(origLines) || origLines[cursor] != hl.text {
					return "", errors.Errorf("context mismatch at line %d", cursor+1)
				}
				out = append(out, hl.text)
				cursor++
			case '-':
				if cursor >= len(origLines) || origLines[cursor] != hl.text {
					return "", errors.Errorf("deletion mismatch at line %d", cursor+1)
				}
				cursor++
			case '+':
				out = append(out, hl.text)
			}
		}
	}
	out = append(out, origLines[cursor:]...)
	return strings.Join(out, "\n"), nil
}
