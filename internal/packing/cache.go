package packing

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"github.com/san-kum/cgsim/internal/structure"
)

// keyVersion changes whenever the packing algorithm changes its output for
// the same request.
const keyVersion = "cgsim-pack/1"

// CacheKey identifies a packed configuration by the content of its request.
type CacheKey string

// Key hashes everything that determines the packer output: species beads,
// counts, existing beads, box, tolerance, attempt budget and seed.
func Key(req Request) CacheKey {
	req = req.withDefaults()
	h := sha256.New()
	putString := func(s string) {
		putInt(h, int64(len(s)))
		h.Write([]byte(s))
	}
	putFloat := func(f float64) {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(f))
		h.Write(b[:])
	}
	putConfig := func(cfg *structure.Configuration) {
		if cfg == nil {
			putInt(h, -1)
			return
		}
		putInt(h, int64(cfg.Len()))
		for _, b := range cfg.Beads {
			putString(b.Name)
			putString(b.ResName)
			putInt(h, int64(b.ResID))
			putString(b.Chain)
			for _, x := range b.Pos {
				putFloat(x)
			}
		}
	}

	putString(keyVersion)
	putInt(h, int64(len(req.Species)))
	for _, s := range req.Species {
		putString(s.Name)
		putInt(h, int64(s.Count))
		putConfig(s.Structure)
	}
	putConfig(req.Existing)
	for _, l := range req.Box.Lengths() {
		putFloat(l)
	}
	putFloat(req.MinSeparation)
	putInt(h, int64(req.MaxAttempts))
	putInt(h, req.Seed)
	return CacheKey(hex.EncodeToString(h.Sum(nil))[:16])
}

func putInt(w io.Writer, v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	w.Write(b[:])
}

// Cache stores packed configurations by key.
type Cache interface {
	// Lookup returns the location of a stored configuration.
	Lookup(key CacheKey) (path string, ok bool, err error)
	Store(key CacheKey, cfg *structure.Configuration) (path string, err error)
}

// FileCache keeps one PDB file per key in Dir, named <Prefix>-<key>.pdb.
// Concurrent writers for the same key and directory are not supported.
type FileCache struct {
	Dir    string
	Prefix string
}

func (c FileCache) Path(key CacheKey) string {
	prefix := c.Prefix
	if prefix == "" {
		prefix = "packed"
	}
	return filepath.Join(c.Dir, fmt.Sprintf("%s-%s.pdb", prefix, key))
}

func (c FileCache) Lookup(key CacheKey) (string, bool, error) {
	path := c.Path(key)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return path, false, nil
	}
	if err != nil {
		return path, false, err
	}
	if info.IsDir() {
		return path, false, fmt.Errorf("packing cache: %s is a directory", path)
	}
	return path, true, nil
}

func (c FileCache) Store(key CacheKey, cfg *structure.Configuration) (string, error) {
	if c.Dir != "" {
		if err := os.MkdirAll(c.Dir, 0755); err != nil {
			return "", err
		}
	}
	path := c.Path(key)
	if err := structure.WritePDB(path, cfg); err != nil {
		return "", err
	}
	return path, nil
}

// PackCached returns the cached configuration for req when present and packs
// and stores it otherwise. A hit leaves the stored file untouched.
func PackCached(p Packer, cache Cache, req Request) (path string, hit bool, err error) {
	key := Key(req)
	path, hit, err = cache.Lookup(key)
	if err != nil || hit {
		return path, hit, err
	}
	cfg, err := p.Pack(req)
	if err != nil {
		return "", false, err
	}
	path, err = cache.Store(key, cfg)
	return path, false, err
}
