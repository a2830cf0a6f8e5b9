package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Report is the JSON summary written by --report.
type Report struct {
	Processed        int      `json:"processed"`
	Successful       int      `json:"successful"`
	Failed           int      `json:"failed"`
	ArtifactsCreated int      `json:"artifacts_created"`
	Errors           []string `json:"errors"`
}

// Summarize counts files and created artifacts. Failed files and failed artifacts of otherwise
// successful files are both listed in Errors; only files count as failed.
func Summarize(results []Result) Report {
	r := Report{Processed: len(results), Errors: []string{}}
	for _, res := range results {
		name := filepath.Base(res.File)
		if res.Success {
			r.Successful++
		} else {
			r.Failed++
			r.Errors = append(r.Errors, fmt.Sprintf("%s: %s", name, res.Error))
		}
		if res.Pipeline == nil {
			continue
		}
		r.ArtifactsCreated += len(res.Pipeline.Created)
		for _, a := range res.Pipeline.Failed() {
			r.Errors = append(r.Errors, fmt.Sprintf("%s: %s %s: %s", name, a.Kind, a.Name, a.Err))
		}
	}
	return r
}

// OK reports whether every file converted.
func (r Report) OK() bool { return r.Failed == 0 }

// WriteReport writes the report as indented JSON.
func WriteReport(path string, r Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "batch")
		}
	}
	return os.WriteFile(path, data, 0644)
}
