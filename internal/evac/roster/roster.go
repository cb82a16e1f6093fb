// Package roster loads the badge database from its flat-file form:
//
//	<id> <name> <building,building,...>
//
// Malformed lines are rejected individually. The database built from the
// remaining lines is always returned, together with an error joining one
// *ParseError per rejected line, so callers decide whether to go on.
package roster

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/types"
)

var (
	ErrOpen          = errors.New("cannot open roster")
	ErrMissingFields = errors.New("expected <id> <name> <buildings>")
	ErrExtraFields   = errors.New("unexpected text after the building list")
	ErrBadID         = errors.New("badge id is not an integer")
	ErrBadBuilding   = errors.New("building id is not an integer")
)

type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("roster line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Load reads the roster at path.
func Load(path string) (types.BadgeDatabase, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.BadgeDatabase{}, fmt.Errorf("%w %s: %v", ErrOpen, path, err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads roster lines from r. A later line with an id already seen
// replaces the earlier record.
func Parse(r io.Reader) (types.BadgeDatabase, error) {
	db := make(types.BadgeDatabase)
	var errs []error

	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		rec, err := parseLine(text)
		if err != nil {
			errs = append(errs, &ParseError{Line: n, Text: text, Err: err})
			continue
		}
		db[rec.ID] = rec
	}
	if err := sc.Err(); err != nil {
		errs = append(errs, fmt.Errorf("read roster: %w", err))
	}

	return db, errors.Join(errs...)
}

func parseLine(text string) (types.BadgeRecord, error) {
	fields := strings.Fields(text)
	if len(fields) < 3 {
		return types.BadgeRecord{}, ErrMissingFields
	}
	if len(fields) > 3 {
		return types.BadgeRecord{}, ErrExtraFields
	}

	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return types.BadgeRecord{}, ErrBadID
	}

	var buildings []int
	for _, tok := range strings.Split(fields[2], ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		b, err := strconv.Atoi(tok)
		if err != nil {
			return types.BadgeRecord{}, fmt.Errorf("%w: %q", ErrBadBuilding, tok)
		}
		buildings = append(buildings, b)
	}

	return types.BadgeRecord{
		ID:                  id,
		Name:                fields[1],
		AuthorizedBuildings: buildings,
	}, nil
}
