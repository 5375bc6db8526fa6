package db

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/hmis/errors"
)

// BackupExt is the extension given to snapshot files.
const BackupExt = ".sqlite3"

// Backup copies the sqlite file at src into dir and returns the snapshot path.
// Snapshot names carry the source name, a timestamp and a short random id so
// that repeated backups within a second never collide.
// Callers holding an open connection should Checkpoint first.
func Backup(src, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", errors.Wrapf(err, "failed to create backup directory %s", dir)
	}

	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	name := fmt.Sprintf("%s-%s-%s%s",
		base,
		time.Now().Format("20060102-150405"),
		uuid.New().String()[:8],
		BackupExt,
	)
	dst := filepath.Join(dir, name)

	if err := copyFile(src, dst); err != nil {
		return "", errors.Wrapf(err, "failed to back up %s", src)
	}
	return dst, nil
}

// Restore replaces the file at dst with the bytes of snapshot.
// The replacement is written beside dst and renamed into place, and stale
// -wal/-shm companions are removed so sqlite does not replay them over the
// restored data. The connection to dst must be closed first.
func Restore(snapshot, dst string) error {
	if _, err := os.Stat(snapshot); err != nil {
		return errors.Wrapf(err, "backup %s is not readable", snapshot)
	}

	tmp := dst + ".restore"
	if err := copyFile(snapshot, tmp); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "failed to stage restore of %s", snapshot)
	}

	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(dst + suffix); err != nil && !os.IsNotExist(err) {
			os.Remove(tmp)
			return errors.Wrapf(err, "failed to remove %s%s", dst, suffix)
		}
	}

	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "failed to replace %s", dst)
	}
	return nil
}

// ListBackups returns snapshot paths in dir for the database file named like src,
// newest first.
func ListBackups(src, dir string) ([]string, error) {
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	matches, err := filepath.Glob(filepath.Join(dir, base+"-*"+BackupExt))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list backups")
	}

	// Names embed a sortable timestamp
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	return matches, nil
}

// PruneBackups deletes all but the newest keep snapshots. keep <= 0 disables pruning.
func PruneBackups(src, dir string, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	backups, err := ListBackups(src, dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, old := range backups[min(keep, len(backups)):] {
		if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
			return removed, errors.Wrapf(err, "failed to delete old backup %s", old)
		}
		removed++
	}
	return removed, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0640)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
