package migrations

import (
	"testing"
	"testing/fstest"
)

func TestVersions_Embedded(t *testing.T) {
	names, err := Versions()
	if err != nil {
		t.Fatalf("Versions: %v", err)
	}
	if len(names) == 0 || names[0] != "001_init" {
		t.Errorf("versions = %v", names)
	}
}

func TestVersions_SortedAndFiltered(t *testing.T) {
	fsys := fstest.MapFS{
		"010_b.sql":   {Data: []byte("select 1")},
		"002_a.sql":   {Data: []byte("select 1")},
		"README.md":   {Data: []byte("docs")},
		"dir/003.sql": {Data: []byte("select 1")},
	}
	names, err := versions(fsys)
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	if len(names) != 2 || names[0] != "002_a" || names[1] != "010_b" {
		t.Errorf("versions = %v", names)
	}
}
