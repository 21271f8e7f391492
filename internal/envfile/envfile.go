package envfile

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// ErrNotFound reports that the env file does not exist at the given path.
var ErrNotFound = errors.New("env file not found")

// Load reads a dotenv-style file into a key→value map.
//
// Blank lines, comment lines and lines without '=' are skipped. Lines are
// split on the first '=' with both sides trimmed; later duplicates of a key
// overwrite earlier ones. Nothing is written into the process environment.
func Load(path string) (map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	// godotenv rejects malformed lines outright; filter them out first so a
	// stray line cannot fail the whole load.
	var lines []string
	for _, line := range strings.Split(string(raw), "\n") {
		s := strings.TrimSpace(line)
		if s == "" || strings.HasPrefix(s, "#") || !strings.Contains(s, "=") {
			continue
		}
		lines = append(lines, line)
	}

	values, err := godotenv.Parse(strings.NewReader(strings.Join(lines, "\n")))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return values, nil
}
