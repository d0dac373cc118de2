package models

import "time"

// Entry represents a locally cached model.
type Entry struct {
	CacheKey   string    // cache directory name (models--org--repo)
	RepoID     string    // canonical repo ID (org/repo)
	Alias      string    // user-assigned alias, may be empty
	Path       string    // full path to the cache directory
	Size       int64     // total size in bytes of all files
	ModifiedAt time.Time // mtime of the newest file
}

// Artifact filenames accepted as evidence of a usable model when a cache
// directory has no snapshots.
var rootArtifacts = []string{
	"config.json",
	"model.safetensors",
	"model.safetensors.index.json",
	"pytorch_model.bin",
	"tokenizer.json",
	"tokenizer.model",
}
