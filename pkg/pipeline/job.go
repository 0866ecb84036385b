package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/matzehuels/edgeprint/pkg/errors"
	"github.com/matzehuels/edgeprint/pkg/slice"
	"github.com/matzehuels/edgeprint/pkg/storage"
)

// Job is the manifest of a processing job, stored at
// jobs/<id>/manifest.json.
type Job struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	Design    Design           `json:"design"`
	Positions []slice.Position `json:"positions"`
	PageCount int              `json:"page_count"`
	ChunkSize int              `json:"chunk_size"`

	// Chunks is the total chunk count; Split is how many have been written.
	Chunks int `json:"chunks"`
	Split  int `json:"split"`

	// NextStartPage is the first page still to be split, nil once every
	// chunk has been written.
	NextStartPage *int `json:"next_start_page,omitempty"`

	Merged bool `json:"merged"`
}

// SplitDone reports whether every chunk has been written.
func (j *Job) SplitDone() bool {
	return j.NextStartPage == nil
}

func saveJob(ctx context.Context, store storage.Store, job *Job) error {
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode manifest")
	}
	return store.Upload(ctx, storage.ManifestPath(job.ID), data)
}

func loadJob(ctx context.Context, store storage.Store, id string) (*Job, error) {
	if err := errors.ValidatePath(id); err != nil || strings.Contains(id, "/") {
		return nil, errors.New(errors.ErrCodeInvalidInput, "invalid job id %q", id)
	}
	data, err := store.Download(ctx, storage.ManifestPath(id))
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, errors.Wrap(errors.ErrCodeJobNotFound, err, "job %s not found", id)
		}
		return nil, err
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "decode manifest of job %s", id)
	}
	return &job, nil
}
