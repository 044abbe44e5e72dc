package packing

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/san-kum/cgsim/internal/dynamo"
	"github.com/san-kum/cgsim/internal/structure"
)

type countingPacker struct {
	inner Packer
	calls int
}

func (c *countingPacker) Pack(req Request) (*structure.Configuration, error) {
	c.calls++
	return c.inner.Pack(req)
}

func startRequest() Request {
	return Request{
		Species: []Species{
			{Name: "H1", Structure: rod(12, "LYS"), Count: 1},
			{Name: "ProTa", Structure: rod(8, "GLU"), Count: 1},
		},
		Box:  dynamo.Cube(14),
		Seed: 11,
	}
}

func TestPackCached_HitLeavesFileUntouched(t *testing.T) {
	cache := FileCache{Dir: t.TempDir(), Prefix: "start"}
	packer := &countingPacker{inner: NewRandomPacker(nil)}
	req := startRequest()

	path, hit, err := PackCached(packer, cache, req)
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Fatal("first call reported a cache hit")
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	info, _ := os.Stat(path)
	stamp := info.ModTime()
	time.Sleep(10 * time.Millisecond)

	again, hit, err := PackCached(packer, cache, req)
	if err != nil {
		t.Fatal(err)
	}
	if !hit || again != path {
		t.Fatalf("expected hit at %s, got hit=%v path=%s", path, hit, again)
	}
	if packer.calls != 1 {
		t.Errorf("packer invoked %d times", packer.calls)
	}
	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) {
		t.Error("cached file changed")
	}
	if info, _ := os.Stat(path); !info.ModTime().Equal(stamp) {
		t.Error("cached file rewritten")
	}

	cfg, err := structure.ReadPDB(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Len() != 20 {
		t.Errorf("expected 20 beads in cached file, got %d", cfg.Len())
	}
}

func TestKey(t *testing.T) {
	base := startRequest()
	key := Key(base)

	if Key(startRequest()) != key {
		t.Fatal("key not stable for equal requests")
	}

	withDefaults := startRequest()
	withDefaults.MinSeparation = DefaultMinSeparation
	withDefaults.MaxAttempts = DefaultMaxAttempts
	if Key(withDefaults) != key {
		t.Error("explicit defaults changed the key")
	}

	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"box", func(r *Request) { r.Box.C = 15 }},
		{"count", func(r *Request) { r.Species[1].Count = 2 }},
		{"seed", func(r *Request) { r.Seed = 12 }},
		{"tolerance", func(r *Request) { r.MinSeparation = 0.6 }},
		{"order", func(r *Request) { r.Species[0], r.Species[1] = r.Species[1], r.Species[0] }},
		{"coordinates", func(r *Request) { r.Species[0].Structure.Beads[3].Pos[1] = 0.01 }},
		{"existing", func(r *Request) { r.Existing = rod(2, "ALA") }},
	}
	for _, tt := range tests {
		req := startRequest()
		tt.mutate(&req)
		if Key(req) == key {
			t.Errorf("%s change did not change the key", tt.name)
		}
	}
}

func TestFileCache_Path(t *testing.T) {
	c := FileCache{Dir: "/data", Prefix: "start"}
	if got := c.Path("abc"); got != "/data/start-abc.pdb" {
		t.Errorf("unexpected path %s", got)
	}
	if got := (FileCache{}).Path("abc"); got != "packed-abc.pdb" {
		t.Errorf("unexpected default path %s", got)
	}
}
