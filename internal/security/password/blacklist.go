package password

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Blacklist is a read-only set of well-known passwords, compared without
// regard to case or surrounding space. The zero value and nil are empty.
type Blacklist struct {
	words map[string]struct{}
}

// ParseBlacklist reads one password per line. Blank lines and lines
// starting with # are skipped.
func ParseBlacklist(r io.Reader) (*Blacklist, error) {
	words := make(map[string]struct{})
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		w := normalizeListed(sc.Text())
		if w == "" || w[0] == '#' {
			continue
		}
		words[w] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("password blacklist: %w", err)
	}
	return &Blacklist{words: words}, nil
}

// LoadBlacklist parses the file at path.
func LoadBlacklist(path string) (*Blacklist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("password blacklist: %w", err)
	}
	defer f.Close()
	return ParseBlacklist(f)
}

func (b *Blacklist) Len() int {
	if b == nil {
		return 0
	}
	return len(b.words)
}

func (b *Blacklist) Contains(pwd string) bool {
	if b == nil {
		return false
	}
	_, ok := b.words[normalizeListed(pwd)]
	return ok
}

func normalizeListed(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
