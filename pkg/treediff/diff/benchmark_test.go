package diff_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jamesainslie/treediff/pkg/treediff/diff"
	"github.com/jamesainslie/treediff/pkg/treediff/index"
)

// BenchmarkIndexes measures the membership phase alone.
func BenchmarkIndexes(b *testing.B) {
	src, tgt := index.New(), index.New()
	for i := range 200_000 {
		p := fmt.Sprintf("d%03d/f%06d", i%500, i)
		src.Add(p)
		if i%10 != 0 {
			tgt.Add(p)
		}
	}

	for _, workers := range []int{1, 4, 16} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			engine := diff.New(diff.Options{Workers: workers})
			b.ResetTimer()
			for range b.N {
				if _, _, err := engine.Indexes(src, tgt); err != nil {
					b.Fatalf("Indexes failed: %v", err)
				}
			}
		})
	}
}

// BenchmarkDiff measures walking and diffing two on-disk trees.
func BenchmarkDiff(b *testing.B) {
	src := b.TempDir()
	tgt := b.TempDir()

	for i := range 10 {
		for _, root := range []string{src, tgt} {
			if err := os.MkdirAll(filepath.Join(root, fmt.Sprintf("dir%d", i)), 0o755); err != nil {
				b.Fatalf("failed to create subdir: %v", err)
			}
		}
		for j := range 100 {
			name := filepath.Join(fmt.Sprintf("dir%d", i), fmt.Sprintf("file%02d.txt", j))
			if err := os.WriteFile(filepath.Join(src, name), nil, 0o644); err != nil {
				b.Fatalf("failed to create file: %v", err)
			}
			if j%4 == 0 {
				continue
			}
			if err := os.WriteFile(filepath.Join(tgt, name), nil, 0o644); err != nil {
				b.Fatalf("failed to create file: %v", err)
			}
		}
	}

	engine := diff.New(diff.Options{})
	b.ResetTimer()
	for range b.N {
		if _, err := engine.Diff(context.Background(), src, tgt); err != nil {
			b.Fatalf("Diff failed: %v", err)
		}
	}
}
