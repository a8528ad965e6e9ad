package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"
	"strconv"
	"testing"

	"github.com/gofrs/uuid/v5"
)

// Benchmark_BlockingPool_RemoveFiles mimics the photo purge: each job removes
// one stored image from disk.
func Benchmark_BlockingPool_RemoveFiles(b *testing.B) {
	payload := make([]byte, 4096)

	for _, size := range []int{1, 2, 4, 8, 16, 32} {
		b.Run(fmt.Sprintf("pool_size=%d", size), func(b *testing.B) {
			dir := b.TempDir()
			names := make([]string, b.N)
			for i := range names {
				names[i] = filepath.Join(dir, uuid.Must(uuid.NewV7()).String()+".jpg")
				if err := os.WriteFile(names[i], payload, 0o644); err != nil {
					b.Fatal(err)
				}
			}
			b.SetBytes(int64(len(payload)))
			b.ReportAllocs()

			ctx := context.Background()
			jobs := make(chan string, 1024)
			remove := func(_ context.Context, name string) { _ = os.Remove(name) }

			labels := pprof.Labels("pool_size", strconv.Itoa(size))
			pprof.Do(ctx, labels, func(ctx context.Context) {
				b.ResetTimer()
				go func() {
					for _, n := range names {
						jobs <- n
					}
					close(jobs)
				}()
				BlockingPool(ctx, size, jobs, remove)
			})
		})
	}
}

// Benchmark_BlockingPool_NewIDs measures pool overhead on a CPU-only job.
func Benchmark_BlockingPool_NewIDs(b *testing.B) {
	for _, size := range []int{1, 4, 16} {
		b.Run(fmt.Sprintf("pool_size=%d", size), func(b *testing.B) {
			b.ReportAllocs()
			ctx := context.Background()
			jobs := make(chan int, 1024)
			w := func(context.Context, int) { _ = uuid.Must(uuid.NewV7()).String() }

			b.ResetTimer()
			go func(n int) {
				for i := range n {
					jobs <- i
				}
				close(jobs)
			}(b.N)
			BlockingPool(ctx, size, jobs, w)
		})
	}
}

func Benchmark_Direct_NewIDs(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		_ = uuid.Must(uuid.NewV7()).String()
	}
}
