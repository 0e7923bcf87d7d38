package runtime

import (
	"bufio"
	"bytes"
	"chat-gateway/errors"
	"embed"
	"io/fs"
	"strings"
)

// Wordlists is the parsed censorship dictionary set. Languages come from the
// file names (fr.txt -> fr) and are only used for logging.
type Wordlists struct {
	Words     []string
	Languages []string
}

// WordlistLoader reads the banned-word dictionaries shipped inside the
// binary, one .txt file per language.
type WordlistLoader struct {
	fs embed.FS
}

func NewWordlistLoader(f embed.FS) *WordlistLoader {
	return &WordlistLoader{fs: f}
}

// LoadAll parses every .txt file under path into one deduplicated word list.
func (l *WordlistLoader) LoadAll(path string) (*Wordlists, error) {
	entries, err := fs.ReadDir(l.fs, path)
	if err != nil {
		return nil, err
	}

	var languages []string
	unique := make(map[string]struct{})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := l.fs.ReadFile(path + "/" + entry.Name())
		if err != nil {
			return nil, err
		}

		// Scanner plutôt que strings.Split pour gérer les fins de ligne \r\n
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				unique[line] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(unique) == 0 {
		return nil, errors.ErrEmptyWords
	}

	words := make([]string, 0, len(unique))
	for w := range unique {
		words = append(words, w)
	}
	return &Wordlists{Words: words, Languages: languages}, nil
}
