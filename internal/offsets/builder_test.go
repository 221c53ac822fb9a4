package offsets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/searchcore/searchcore/pkg/models"
)

func TestBuildRoundTripsEveryTerm(t *testing.T) {
	dir := t.TempDir()

	writeShardFile(t, dir, "c", map[string]models.PostingsList{
		"cat": {{DocID: 0, TF: 3}},
		"cow": {{DocID: 1, TF: 1}},
	}, []string{"cat", "cow"})
	writeShardFile(t, dir, "d", map[string]models.PostingsList{
		"dog": {{DocID: 0, TF: 1}},
	}, []string{"dog"})

	offsetMap, err := Build(dir, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(offsetMap) != 3 {
		t.Fatalf("offsets has %d entries, want 3", len(offsetMap))
	}

	for term, bucket := range map[string]string{"cat": "c", "cow": "c", "dog": "d"} {
		offset, ok := offsetMap[term]
		if !ok {
			t.Fatalf("missing offset for %q", term)
		}
		path := filepath.Join(dir, bucket+"_inverted_index.jsonl")
		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("opening %s: %v", path, err)
		}
		if _, err := f.Seek(int64(offset), 0); err != nil {
			t.Fatalf("seeking: %v", err)
		}
		buf := make([]byte, 256)
		n, _ := f.Read(buf)
		f.Close()

		line := buf[:n]
		for i, b := range line {
			if b == '\n' {
				line = line[:i]
				break
			}
		}
		rec, err := models.DecodeShardLine(line)
		if err != nil {
			t.Fatalf("decoding line at offset %d: %v", offset, err)
		}
		if rec.Term != term {
			t.Fatalf("seeking to offsets[%q] yielded record for %q", term, rec.Term)
		}
	}
}

func TestBuildSkipsCorruptLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a_inverted_index.jsonl")
	content := `{"apple":[[0,1]]}` + "\n" + `not json` + "\n" + `{"ant":[[1,2]]}` + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	offsetMap, err := Build(dir, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(offsetMap) != 2 {
		t.Fatalf("offsets = %v, want 2 entries (apple, ant)", offsetMap)
	}
}

func TestWriteAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := map[string]uint64{"cat": 0, "dog": 42}
	if err := Write(dir, want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != len(want) || got["cat"] != 0 || got["dog"] != 42 {
		t.Fatalf("Load = %v, want %v", got, want)
	}
}

func TestLoadMissingFileIsFatal(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatalf("Load on directory with no offsets file returned no error")
	}
}

func writeShardFile(t *testing.T, dir, bucket string, terms map[string]models.PostingsList, order []string) {
	t.Helper()
	path := filepath.Join(dir, bucket+"_inverted_index.jsonl")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating shard fixture: %v", err)
	}
	defer f.Close()
	for _, term := range order {
		line, err := models.EncodeShardLine(term, terms[term])
		if err != nil {
			t.Fatalf("encoding line: %v", err)
		}
		if _, err := f.Write(line); err != nil {
			t.Fatalf("writing line: %v", err)
		}
	}
}
