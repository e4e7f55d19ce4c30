package application

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-qa4sm/infrastructure/metadata"
)

// GrammarLoader parses, validates and caches naming grammars.
// Grammars are cached by the SHA256 hash of their normalized definition, so
// the same grammar written with different whitespace or key order compiles
// once. Compiled grammars are immutable and shared between callers.
type GrammarLoader struct {
	// cache maps definition hash to compiled grammar.
	cache   map[string]*metadata.Grammar
	cacheMu sync.RWMutex
	// sf collapses concurrent compilations of the same definition.
	sf singleflight.Group
}

// NewGrammarLoader creates a loader with an empty cache.
func NewGrammarLoader() *GrammarLoader {
	return &GrammarLoader{cache: make(map[string]*metadata.Grammar)}
}

// LoadFromFile loads and compiles the grammar stored at path.
func (gl *GrammarLoader) LoadFromFile(ctx context.Context, path string) (*metadata.Grammar, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return gl.load(ctx, data)
}

// LoadFromReader loads and compiles a grammar read from r.
func (gl *GrammarLoader) LoadFromReader(ctx context.Context, r io.Reader) (*metadata.Grammar, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	return gl.load(ctx, data)
}

// Load returns the grammar named by cfg.GrammarPath, or the embedded
// default grammar when the path is empty.
func (gl *GrammarLoader) Load(ctx context.Context, cfg Config) (*metadata.Grammar, error) {
	if cfg.GrammarPath == "" {
		return metadata.Default()
	}
	return gl.LoadFromFile(ctx, cfg.GrammarPath)
}

func (gl *GrammarLoader) load(ctx context.Context, data []byte) (*metadata.Grammar, error) {
	def, err := metadata.DecodeDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	hash, err := definitionHash(def)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate hash: %w", err)
	}

	v, err, _ := gl.sf.Do(hash, func() (any, error) {
		// Check the cache again inside the flight; another caller may have
		// finished compiling between our lookup and the Do call.
		if g, ok := gl.cached(hash); ok {
			return g, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		g, err := metadata.NewGrammar(def)
		if err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}

		gl.cacheMu.Lock()
		gl.cache[hash] = g
		gl.cacheMu.Unlock()
		return g, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*metadata.Grammar), nil
}

// definitionHash hashes the re-encoded definition so formatting differences
// in the source do not defeat the cache.
func definitionHash(def metadata.Definition) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(def); err != nil {
		return "", fmt.Errorf("failed to encode definition for hashing: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

func (gl *GrammarLoader) cached(hash string) (*metadata.Grammar, bool) {
	gl.cacheMu.RLock()
	defer gl.cacheMu.RUnlock()
	g, ok := gl.cache[hash]
	return g, ok
}

// CacheLen returns the number of compiled grammars held.
func (gl *GrammarLoader) CacheLen() int {
	gl.cacheMu.RLock()
	defer gl.cacheMu.RUnlock()
	return len(gl.cache)
}

// ClearCache drops every compiled grammar.
func (gl *GrammarLoader) ClearCache() {
	gl.cacheMu.Lock()
	defer gl.cacheMu.Unlock()
	gl.cache = make(map[string]*metadata.Grammar)
}
