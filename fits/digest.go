package fits

import (
	"encoding/hex"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Digest returns the BLAKE3 digest of the file at path as a hex string.
// Input sets are digested to flag byte-identical frames before combining,
// and written master files report their digest through diagnostics so runs
// can be compared without re-reading pixel data.
func Digest(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
