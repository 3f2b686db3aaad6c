package codegen

import (
	"context"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"
)

// Cache memoizes generator runs for the lifetime of a process. Runs are
// keyed by the configuration and the content of every input document, so a
// changed file is picked up on the next call. Concurrent calls with the same
// key share one generation, and failed runs are not remembered.
type Cache struct {
	logger *zap.Logger
	group  singleflight.Group

	mu    sync.Mutex
	files map[string]*File
}

func NewCache(opts ...Option) *Cache {
	o := newOptions(opts)
	return &Cache{logger: o.logger, files: map[string]*File{}}
}

// Generate is Generate with memoization. cached reports whether the file
// came from an earlier run.
func (c *Cache) Generate(ctx context.Context, cfg *Config, disc Discovery) (f *File, cached bool, err error) {
	in, err := load(ctx, disc)
	if err != nil {
		publish(ctx, cfg, nil, false, err)
		return nil, false, err
	}
	key, err := in.key(cfg)
	if err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	f, ok := c.files[key]
	c.mu.Unlock()
	if ok {
		c.logger.Debug("generator cache hit", zap.String("key", key))
		publish(ctx, cfg, f, true, nil)
		return f, true, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.Lock()
		f, ok := c.files[key]
		c.mu.Unlock()
		if ok {
			return f, nil
		}
		f, err := generate(cfg, in, c.logger)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.files[key] = f
		c.mu.Unlock()
		return f, nil
	})
	if err != nil {
		publish(ctx, cfg, nil, false, err)
		return nil, false, err
	}
	f = v.(*File)
	publish(ctx, cfg, f, false, nil)
	return f, false, nil
}

// Len reports the number of remembered runs.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.files)
}

func (in *inputs) key(cfg *Config) (string, error) {
	conf, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	h := xxhash.New()
	h.Write(conf)
	for _, group := range [][]*ast.Source{in.schema, in.documents} {
		h.WriteString("\x00--\x00")
		for _, src := range group {
			h.WriteString(src.Name)
			h.WriteString("\x00")
			h.WriteString(src.Input)
			h.WriteString("\x00")
		}
	}
	return strconv.FormatUint(h.Sum64(), 16), nil
}
