package discovery

import (
	"os"
	"path/filepath"
	"testing"

	perr "github.com/BCM-Neurosurgery/video-sync/internal/platform/errors"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), nil, 0o644); err != nil {
			t.Fatalf("touch %s: %v", n, err)
		}
	}
}

func TestFindAcquisition(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, dir,
		"session01_NSP-1_001.nev",
		"session01_NSP-1_001.ns3",
		"session01_NSP-1_001.ns5",
		"session01_NSP-2_001.nev",
	)

	set, err := FindAcquisition(dir)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if filepath.Base(set.NSP1NEV) != "session01_NSP-1_001.nev" {
		t.Fatalf("nsp1 nev: %s", set.NSP1NEV)
	}
	if filepath.Base(set.NSP2NEV) != "session01_NSP-2_001.nev" {
		t.Fatalf("nsp2 nev: %s", set.NSP2NEV)
	}
}

func TestFindAcquisitionMissingSlot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, dir, "session01_NSP-1_001.nev", "session01_NSP-1_001.ns3", "session01_NSP-1_001.ns5")

	_, err := FindAcquisition(dir)
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestFindAcquisitionAmbiguousSlot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, dir,
		"a_NSP-1.nev", "b_NSP-1.nev",
		"a_NSP-1.ns3", "a_NSP-1.ns5", "a_NSP-2.nev",
	)

	_, err := FindAcquisition(dir)
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("expected invalid-argument, got %v", err)
	}
}

func TestFindChunks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, dir,
		"20240301T120000.json",
		"20240301T120000_21187677.mp4",
		"20240301T120000_21187678.mp4",
		"20240301T121000.json",
		"20240301T121000_21187677.mp4",
	)

	chunks, err := FindChunks(dir)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("chunks: got %d", len(chunks))
	}
	if chunks[0].Stamp != "20240301T120000" || chunks[1].Stamp != "20240301T121000" {
		t.Fatalf("stamp order: %+v", chunks)
	}
	if len(chunks[0].Videos) != 2 {
		t.Fatalf("chunk 0 videos: %+v", chunks[0].Videos)
	}
	if _, ok := chunks[1].Video("21187677"); !ok {
		t.Fatalf("chunk 1 missing camera video")
	}
	if _, ok := chunks[1].Video("21187678"); ok {
		t.Fatalf("chunk 1 must not have camera 21187678")
	}
}

func TestFindChunksSidecarWithoutVideo(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, dir, "20240301T120000.json")

	_, err := FindChunks(dir)
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("expected invalid-argument, got %v", err)
	}
}
