// Package command builds the shell command used to launch a user's bot.
// Building is pure string construction; nothing here executes anything.
package command

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Spec holds the inputs for one launch command.
type Spec struct {
	// WorkDir is the user's workspace; the script changes into it first.
	WorkDir string
	// EntryFile is the entry-point filename inside WorkDir. It must have
	// passed SafeEntryFile before reaching the builder.
	EntryFile string
	// ManifestPath is the dependency manifest. The install step only runs
	// when the file exists at launch time.
	ManifestPath string
	// LogPath receives the startup banner (truncating any previous run)
	// and then all combined output in append mode.
	LogPath string
	// Runtime is the interpreter, e.g. "python3". It is executed with -u
	// so output is unbuffered.
	Runtime string
	// InstallCommand installs from the manifest, e.g. "pip install -r".
	// Operator-controlled, inserted verbatim.
	InstallCommand string
}

// Build produces a /bin/sh script that provisions and then execs the bot.
// Every user-influenced value is single-quoted so it can never be parsed
// as shell syntax.
func Build(s Spec) string {
	var b strings.Builder

	fmt.Fprintf(&b, "cd %s\n", quote(s.WorkDir))
	fmt.Fprintf(&b, "echo \"--- System is starting up at $(date) ---\" > %s\n", quote(s.LogPath))
	fmt.Fprintf(&b, "if [ -f %s ]; then\n", quote(s.ManifestPath))
	fmt.Fprintf(&b, "    echo %s >> %s\n",
		quote("--- Installing dependencies from "+filepath.Base(s.ManifestPath)+" ---"), quote(s.LogPath))
	fmt.Fprintf(&b, "    %s %s >> %s 2>&1\n", s.InstallCommand, quote(s.ManifestPath), quote(s.LogPath))
	fmt.Fprintf(&b, "fi\n")
	fmt.Fprintf(&b, "echo %s >> %s\n",
		quote("--- Starting bot: "+s.Runtime+" "+s.EntryFile+" ---"), quote(s.LogPath))
	fmt.Fprintf(&b, "exec %s -u %s >> %s 2>&1\n", s.Runtime, quote(s.EntryFile), quote(s.LogPath))

	return b.String()
}

// quote returns v in single quotes with embedded single quotes escaped,
// the POSIX-safe form 'it'\''s'.
func quote(v string) string {
	return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
}

// entryFilePattern is the character set allowed in entry-point filenames.
var entryFilePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// SafeEntryFile normalizes a user-supplied entry-point filename and rejects
// anything that could reach the shell as more than a plain filename. The
// returned value is always a bare basename.
func SafeEntryFile(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("entry file is empty")
	}

	base := filepath.Base(name)
	if base == "." || base == ".." || !entryFilePattern.MatchString(base) {
		return "", fmt.Errorf("invalid entry file %q", name)
	}
	return base, nil
}
