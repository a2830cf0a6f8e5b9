package batch

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"wcs-converter/internal/pipeline"
)

// Converter converts one file. *pipeline.Converter satisfies it.
type Converter interface {
	Convert(ctx context.Context, path string) (*pipeline.Result, error)
}

// Result holds the outcome of processing one file.
type Result struct {
	File     string
	Success  bool
	Error    string
	Pipeline *pipeline.Result
}

// Discover returns every .pof file under dir, sorted.
func Discover(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".pof") {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// Run converts all files using a worker pool. Each file is converted independently; a
// cancelled context marks the files not yet started as failed.
func Run(ctx context.Context, conv Converter, files []string, workers int, logger *log.Logger) []Result {
	total := len(files)
	results := make([]Result, total)
	var processed atomic.Int64
	if workers <= 0 {
		workers = 1
	}

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					elapsed := time.Since(start).Seconds()
					logger.Info("progress", "done", p, "total", total, "rate", float64(p)/elapsed)
				}
			}
		}
	}()

	// Worker pool
	fileChan := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range fileChan {
				results[idx] = processFile(ctx, conv, files[idx])
				processed.Add(1)
			}
		}()
	}

	// Send work
	for i := range files {
		fileChan <- i
	}
	close(fileChan)

	wg.Wait()
	close(done)

	logger.Info("batch finished", "files", total, "elapsed", time.Since(start).Round(time.Millisecond))
	return results
}

func processFile(ctx context.Context, conv Converter, path string) Result {
	if err := ctx.Err(); err != nil {
		return Result{File: path, Error: err.Error()}
	}
	res, err := conv.Convert(ctx, path)
	if err != nil {
		return Result{File: path, Error: err.Error(), Pipeline: res}
	}
	return Result{File: path, Success: true, Pipeline: res}
}
