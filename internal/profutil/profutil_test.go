package profutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/pprof/profile"

	"pgtbl/internal/profutil"
)

func writeSampleProfile(t *testing.T, path string, value int64) {
	t.Helper()
	fn := &profile.Function{ID: 1, Name: "pgtbl.Table.Map", SystemName: "pgtbl.Table.Map"}
	loc := &profile.Location{ID: 1, Line: []profile.Line{{Function: fn, Line: 1}}}
	prof := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "cpu", Unit: "nanoseconds"}},
		Sample:     []*profile.Sample{{Location: []*profile.Location{loc}, Value: []int64{value}}},
		Location:   []*profile.Location{loc},
		Function:   []*profile.Function{fn},
		PeriodType: &profile.ValueType{Type: "cpu", Unit: "nanoseconds"},
		Period:     1,
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := prof.Write(f); err != nil {
		t.Fatalf("write profile: %v", err)
	}
}

func TestMergeFilesSumsSampleValues(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.pb.gz")
	p2 := filepath.Join(dir, "b.pb.gz")
	writeSampleProfile(t, p1, 100)
	writeSampleProfile(t, p2, 250)

	merged, err := profutil.MergeFiles(p1, p2)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(merged.Sample) == 0 {
		t.Fatalf("merged profile has no samples")
	}
	var total int64
	for _, s := range merged.Sample {
		for _, v := range s.Value {
			total += v
		}
	}
	if total != 350 {
		t.Fatalf("merged sample total = %d, want 350", total)
	}
}

func TestMergeFilesPropagatesOpenError(t *testing.T) {
	if _, err := profutil.MergeFiles("/nonexistent/path/does/not/exist.pb.gz"); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}
