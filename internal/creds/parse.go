// File: internal/creds/parse.go
package creds

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Pair is one credential record from an import source.
type Pair struct {
	Login    string
	Password string
}

// Masked renders the pair with the password hidden, for operator prompts.
func (p Pair) Masked() string {
	return p.Login + ":" + strings.Repeat("*", len(p.Password))
}

// Plain renders the pair in the login:password form placed on the clipboard.
func (p Pair) Plain() string {
	return p.Login + ":" + p.Password
}

// ParseLines reads an import source: one login:password per line. Blank lines
// and #-prefixed lines are ignored; lines without a colon or with an empty
// field after trimming are silently skipped.
func ParseLines(r io.Reader) ([]Pair, error) {
	var out []Pair
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		login, password, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		login = strings.TrimSpace(login)
		password = strings.TrimSpace(password)
		if login == "" || password == "" {
			continue
		}
		out = append(out, Pair{Login: login, Password: password})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read credential source: %w", err)
	}
	return out, nil
}

// ParseFile reads and parses an import source from disk. An unreadable file
// or one with no usable lines is an operator-input fault and aborts before
// any walker state is created.
func ParseFile(path string) ([]Pair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open credential file: %w", err)
	}
	defer f.Close()

	pairs, err := ParseLines(f)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("credential file %q contains no login:password lines", path)
	}
	return pairs, nil
}
