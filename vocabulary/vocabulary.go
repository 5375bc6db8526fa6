// Package vocabulary loads diagnosis name lists used to seed the store.
//
// Two file layouts are understood:
//
//	diagnoses.txt   one name per line, blank lines and # comments ignored
//	diagnoses.toml  diagnoses = ["Malaria", "Pneumonia"]
package vocabulary

import (
	"bufio"
	"bytes"
	_ "embed"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/teranos/hmis/errors"
)

//go:embed diagnoses.txt
var defaultList []byte

// File is the layout of a .toml vocabulary file.
type File struct {
	Diagnoses []string `toml:"diagnoses"`
}

// Default returns the built-in outpatient diagnosis list.
func Default() []string {
	names, _ := parseLines(bytes.NewReader(defaultList))
	return names
}

// Load reads names from path. Files ending in .toml are decoded as File;
// anything else is read line by line. Names are trimmed and blanks dropped;
// repeats are kept so callers can report them.
func Load(path string) ([]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return loadTOML(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open vocabulary %s", path)
	}
	defer f.Close()

	names, err := parseLines(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read vocabulary %s", path)
	}
	return names, nil
}

func loadTOML(path string) ([]string, error) {
	var file File
	meta, err := toml.DecodeFile(path, &file)
	if err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(err, "failed to parse vocabulary %s", path),
			`expected a top-level array: diagnoses = ["Malaria", "Pneumonia"]`)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Newf("vocabulary %s: unknown key %q", path, undecoded[0].String())
	}

	names := make([]string, 0, len(file.Diagnoses))
	for _, n := range file.Diagnoses {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names, nil
}

// Append adds names to the end of a line-oriented vocabulary file, creating
// it if needed.
func Append(path string, names []string) error {
	if len(names) == 0 {
		return nil
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return errors.Newf("cannot append to %s: only line-oriented vocabulary files can be appended", path)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return errors.Wrapf(err, "failed to open vocabulary %s", path)
	}

	w := bufio.NewWriter(f)
	for _, n := range names {
		w.WriteString(strings.TrimSpace(n))
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.Wrapf(err, "failed to write vocabulary %s", path)
	}
	return f.Close()
}

func parseLines(r io.Reader) ([]string, error) {
	var names []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	return names, scanner.Err()
}
