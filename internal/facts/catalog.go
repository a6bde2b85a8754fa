// Package facts loads the static fact packs and serves random picks per theme.
package facts

import (
	"fmt"
	"io/fs"
	"math/rand/v2"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/successdanesy/Knowledge-Drop-Bot/internal/domain"
)

// record mirrors one entry of a facts/<theme>.yaml pack.
type record struct {
	Drop      string `yaml:"drop"`
	Hook      string `yaml:"hook"`
	Expand    string `yaml:"expand"`
	CTA       string `yaml:"cta"`
	ShareText string `yaml:"share_text"`
}

// Catalog is an immutable theme -> facts index built at startup.
type Catalog struct {
	byTheme map[domain.Theme][]domain.Fact
	byID    map[string]domain.Fact
	all     []domain.Fact

	mu  sync.Mutex
	rnd *rand.Rand
}

// Load reads facts/<theme>.yaml for every content theme from fsys.
// A missing pack is an error; an empty pack is allowed.
func Load(fsys fs.FS) (*Catalog, error) {
	packs := make(map[domain.Theme][]domain.Fact)
	for _, th := range domain.ContentThemes() {
		name := "facts/" + th.String() + ".yaml"
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		var recs []record
		if err := yaml.Unmarshal(raw, &recs); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		list := make([]domain.Fact, 0, len(recs))
		for i, r := range recs {
			if r.Drop == "" {
				return nil, fmt.Errorf("%s: entry %d has no drop", name, i)
			}
			list = append(list, domain.Fact{
				ID:        fmt.Sprintf("%s-%d", th, i),
				Theme:     th,
				Drop:      r.Drop,
				Hook:      r.Hook,
				Expand:    r.Expand,
				CTA:       r.CTA,
				ShareText: r.ShareText,
			})
		}
		packs[th] = list
	}
	return New(packs), nil
}

// New builds a catalog from already-parsed facts. Entries under ThemeRandomMix are ignored.
func New(packs map[domain.Theme][]domain.Fact) *Catalog {
	c := &Catalog{
		byTheme: make(map[domain.Theme][]domain.Fact),
		byID:    make(map[string]domain.Fact),
		rnd:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, th := range domain.ContentThemes() {
		list := packs[th]
		c.byTheme[th] = list
		c.all = append(c.all, list...)
		for _, f := range list {
			c.byID[f.ID] = f
		}
	}
	return c
}

// pool returns the facts backing th; random_mix pools every content theme.
func (c *Catalog) pool(th domain.Theme) []domain.Fact {
	if th == domain.ThemeRandomMix {
		return c.all
	}
	return c.byTheme[th]
}

// Random returns one fact from th, or false when the pool is empty.
func (c *Catalog) Random(th domain.Theme) (domain.Fact, bool) {
	p := c.pool(th)
	if len(p) == 0 {
		return domain.Fact{}, false
	}
	c.mu.Lock()
	i := c.rnd.IntN(len(p))
	c.mu.Unlock()
	return p[i], true
}

// Sample returns up to n distinct facts from th in random order.
func (c *Catalog) Sample(th domain.Theme, n int) []domain.Fact {
	p := c.pool(th)
	if n > len(p) {
		n = len(p)
	}
	if n <= 0 {
		return nil
	}
	c.mu.Lock()
	idx := c.rnd.Perm(len(p))[:n]
	c.mu.Unlock()
	out := make([]domain.Fact, n)
	for i, j := range idx {
		out[i] = p[j]
	}
	return out
}

// ByID resolves a fact id such as "nature-2".
func (c *Catalog) ByID(id string) (domain.Fact, bool) {
	f, ok := c.byID[id]
	return f, ok
}

// Count returns the number of facts in th.
func (c *Catalog) Count(th domain.Theme) int {
	return len(c.pool(th))
}
