package storage

import "fmt"

// Job artifact layout:
//
//	jobs/<id>/manifest.json
//	jobs/<id>/original.pdf
//	jobs/<id>/edges/<position>
//	jobs/<id>/source/chunk-00000.pdf
//	jobs/<id>/processed/chunk-00000.pdf
//	jobs/<id>/final.pdf

// JobPrefix returns the prefix holding every artifact of a job.
func JobPrefix(jobID string) string {
	return "jobs/" + jobID + "/"
}

// SourcePrefix returns the prefix of a job's unprocessed chunks.
func SourcePrefix(jobID string) string {
	return JobPrefix(jobID) + "source/"
}

// ProcessedPrefix returns the prefix of a job's composited chunks.
func ProcessedPrefix(jobID string) string {
	return JobPrefix(jobID) + "processed/"
}

// EdgePrefix returns the prefix of a job's edge design sources.
func EdgePrefix(jobID string) string {
	return JobPrefix(jobID) + "edges/"
}

// EdgePath returns where the edge design source for position is stored.
func EdgePath(jobID, position string) string {
	return EdgePrefix(jobID) + position
}

// OriginalPath returns where the uploaded source document is stored.
func OriginalPath(jobID string) string {
	return JobPrefix(jobID) + "original.pdf"
}

// SourceChunkPath returns where unprocessed chunk index is stored.
func SourceChunkPath(jobID string, index int) string {
	return SourcePrefix(jobID) + chunkName(index)
}

// ProcessedChunkPath returns where composited chunk index is stored.
func ProcessedChunkPath(jobID string, index int) string {
	return ProcessedPrefix(jobID) + chunkName(index)
}

// FinalPath returns where the merged document is stored.
func FinalPath(jobID string) string {
	return JobPrefix(jobID) + "final.pdf"
}

// ManifestPath returns where the job manifest is stored.
func ManifestPath(jobID string) string {
	return JobPrefix(jobID) + "manifest.json"
}

func chunkName(index int) string {
	return fmt.Sprintf("chunk-%05d.pdf", index)
}
