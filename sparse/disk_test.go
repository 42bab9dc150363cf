package sparse

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestDiskStore(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		m    *CSR
	}{
		{
			name: "a",
			m: M([][]complex128{
				{1, 0},
				{0, 2i},
			}),
		},
		{
			name: "kron",
			m: M([][]complex128{
				{1, -4, 7},
				{-2, 0, 3},
			}).Kron(Identity(2)),
		},
		{
			name: "empty",
			m:    Zeros(3, 5),
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			dir, err := os.MkdirTemp("", "")
			if err != nil {
				t.Fatalf("%+v", err)
			}
			defer os.RemoveAll(dir)

			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			s, err := OpenDiskStore(ctx, filepath.Join(dir, "m.db"))
			if err != nil {
				t.Fatalf("%+v", err)
			}
			defer s.Close()

			if err := s.Put(ctx, test.name, Identity(7)); err != nil {
				t.Fatalf("%+v", err)
			}
			// Put replaces the previous matrix.
			if err := s.Put(ctx, test.name, test.m); err != nil {
				t.Fatalf("%+v", err)
			}
			m, err := s.Get(ctx, test.name)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if !m.Equal(test.m) {
				t.Fatalf("%s, expected %s", m, test.m)
			}

			if err := s.Delete(ctx, test.name); err != nil {
				t.Fatalf("%+v", err)
			}
			ok, err := s.Has(ctx, test.name)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if ok {
				t.Fatalf("%s not deleted", test.name)
			}
			if _, err := s.Get(ctx, test.name); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestDiskStoreInts(t *testing.T) {
	t.Parallel()
	dir, err := os.MkdirTemp("", "")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer os.RemoveAll(dir)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	dbPath := filepath.Join(dir, "m.db")
	s, err := OpenDiskStore(ctx, dbPath)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	for _, name := range []string{"b/h", "a/h", "a/op/sz", "ab"} {
		if err := s.Put(ctx, name, Identity(2)); err != nil {
			t.Fatalf("%+v", err)
		}
	}
	names, err := s.Names(ctx, "a/")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if expected := []string{"a/h", "a/op/sz"}; !slices.Equal(names, expected) {
		t.Fatalf("%v, expected %v", names, expected)
	}

	v := []int{-1, -1, 1, 3, 3}
	if err := s.PutInts(ctx, "qn", v); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("%+v", err)
	}

	// Reopening keeps the data.
	s, err = OpenDiskStore(ctx, dbPath)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer s.Close()
	got, err := s.GetInts(ctx, "qn")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !slices.Equal(got, v) {
		t.Fatalf("%v, expected %v", got, v)
	}
}

func TestDiskStoreNames(t *testing.T) {
	t.Parallel()
	dir, err := os.MkdirTemp("", "")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer os.RemoveAll(dir)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	s, err := OpenDiskStore(ctx, filepath.Join(dir, "m.db"))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer s.Close()
	for _, name := range []string{"héisenberg/h", "héisenberg/op/sz", "hé", "hf", "ising/h"} {
		if err := s.Put(ctx, name, Identity(1)); err != nil {
			t.Fatalf("%+v", err)
		}
	}

	tests := []struct {
		prefix string
		names  []string
	}{
		{prefix: "héisenberg/", names: []string{"héisenberg/h", "héisenberg/op/sz"}},
		{prefix: "hé", names: []string{"hé", "héisenberg/h", "héisenberg/op/sz"}},
		// Names are ordered by their bytes.
		{prefix: "", names: []string{"hf", "hé", "héisenberg/h", "héisenberg/op/sz", "ising/h"}},
		{prefix: "x", names: []string{}},
	}
	for _, test := range tests {
		names, err := s.Names(ctx, test.prefix)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		if !slices.Equal(names, test.names) {
			t.Fatalf("%q: %q, expected %q", test.prefix, names, test.names)
		}
	}
}
