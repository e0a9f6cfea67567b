package exchange

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Constructor builds a venue client from options.
type Constructor func(opts Options) (Exchange, error)

// Registry maps exchange ids to their constructors.
type Registry struct {
	constructors map[string]Constructor
}

func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// DefaultRegistry knows every venue shipped with the bot.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("binance", NewBinance)
	r.Register("mexc", NewMexc)
	r.Register("okx", NewOKX)
	return r
}

func (r *Registry) Register(id string, c Constructor) {
	r.constructors[strings.ToLower(id)] = c
}

func (r *Registry) New(id string, opts Options) (Exchange, error) {
	c, ok := r.constructors[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedExchange, "%q (supported: %s)", id, strings.Join(r.Supported(), ", "))
	}
	ex, err := c(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "init exchange %s", id)
	}
	return ex, nil
}

func (r *Registry) Supported() []string {
	ids := make([]string, 0, len(r.constructors))
	for id := range r.constructors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
