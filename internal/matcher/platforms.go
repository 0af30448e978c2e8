// Package matcher guesses which store product corresponds to a provider
// service. Matching is heuristic and order dependent: the first hit wins.
package matcher

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/panelsync/panelsync/internal/shared"
)

// Platform associates a platform name with the keywords that identify it.
type Platform struct {
	Name     string   `yaml:"platform"`
	Keywords []string `yaml:"keywords"`
}

// Table is an ordered list of platforms. Earlier entries take precedence.
type Table []Platform

// ErrInvalidTable reports a malformed platform table document.
var ErrInvalidTable = errors.New("matcher: invalid platform table")

// DefaultTable is used when no table is configured.
func DefaultTable() Table {
	return Table{
		{Name: "Soundcloud", Keywords: []string{"soundcloud", "sound cloud"}},
		{Name: "Spotify", Keywords: []string{"spotify", "playlist", "monthly listeners"}},
		{Name: "Instagram", Keywords: []string{"instagram", "insta", "igtv", "reels"}},
		{Name: "YouTube", Keywords: []string{"youtube", "yt", "shorts"}},
		{Name: "TikTok", Keywords: []string{"tiktok", "tik tok"}},
		{Name: "Twitter", Keywords: []string{"twitter", "tweet", "retweets"}},
	}
}

// LoadTable parses a YAML list of {platform, keywords} entries.
func LoadTable(r io.Reader) (Table, error) {
	var table Table
	if err := yaml.NewDecoder(r).Decode(&table); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidTable)
		}
		return nil, fmt.Errorf("matcher: decode table: %w", err)
	}
	if err := table.validate(); err != nil {
		return nil, err
	}
	return table.normalised(), nil
}

// LoadTableFile reads a table from path. An empty path yields DefaultTable.
func LoadTableFile(path string) (Table, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultTable(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("matcher: open table: %w", err)
	}
	defer func() { _ = f.Close() }()
	return LoadTable(f)
}

func (t Table) validate() error {
	if len(t) == 0 {
		return fmt.Errorf("%w: no platforms", ErrInvalidTable)
	}
	for i, p := range t {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: entry %d has no platform name", ErrInvalidTable, i)
		}
		if len(p.Keywords) == 0 {
			return fmt.Errorf("%w: %s has no keywords", ErrInvalidTable, p.Name)
		}
	}
	return nil
}

func (t Table) normalised() Table {
	out := make(Table, 0, len(t))
	for _, p := range t {
		keywords := make([]string, 0, len(p.Keywords))
		for _, kw := range p.Keywords {
			kw = strings.TrimSpace(shared.Lower(kw))
			if kw != "" {
				keywords = append(keywords, kw)
			}
		}
		out = append(out, Platform{Name: strings.TrimSpace(p.Name), Keywords: keywords})
	}
	return out
}
