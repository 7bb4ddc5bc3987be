package combine

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/earwighaven/masterflatmaker/fits"
)

// errDirectoryConflict reports that a plain file occupies the path where a
// directory is needed.
var errDirectoryConflict = errors.New("a file already exists with the directory name")

// ensureDirectory makes sure path exists as a directory, creating a single
// level if needed. When a plain file is in the way, a warning line is
// written to conflicts and errDirectoryConflict returned.
func ensureDirectory(path string, conflicts io.Writer) error {
	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return nil
		}
		fmt.Fprintln(conflicts, "A file (not a directory) already exists with the name and location "+
			"you specified. Choose a different name or location.")
		return fmt.Errorf("%q: %w", path, errDirectoryConflict)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.Mkdir(path, 0755)
}

// subfolderPath resolves the disposition folder for an input file. A
// relative folder name becomes a subdirectory of the input file's location;
// an absolute one is used as given.
func subfolderPath(descriptor fits.FileDescriptor, folderName string) string {
	if filepath.IsAbs(folderName) {
		return folderName
	}
	return filepath.Join(filepath.Dir(descriptor.Path), folderName)
}

// disposeToSubfolder moves one input file into the disposition folder,
// reporting whether the move happened. A plain file blocking the folder is
// not fatal; the input is simply left in place.
func disposeToSubfolder(descriptor fits.FileDescriptor, folderName string, conflicts io.Writer) (bool, error) {
	directory := subfolderPath(descriptor, folderName)
	if err := ensureDirectory(directory, conflicts); err != nil {
		if errors.Is(err, errDirectoryConflict) {
			return false, nil
		}
		return false, err
	}
	destination, err := UniqueDestination(directory, filepath.Base(descriptor.Path))
	if err != nil {
		return false, err
	}
	if err := os.Rename(descriptor.Path, destination); err != nil {
		return false, err
	}
	return true, nil
}
