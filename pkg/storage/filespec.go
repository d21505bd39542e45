package storage

import (
	"time"

	"github.com/3leaps/nimbusfs/pkg/match"
	"github.com/3leaps/nimbusfs/pkg/provider"
)

// FileSpec describes a stored object. Providers expose no creation time, so
// Created and Modified both carry the last-modified time.
type FileSpec struct {
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

func fileSpecFromSummary(o provider.ObjectSummary) FileSpec {
	return FileSpec{
		Path:     match.NormalizePath(o.Key),
		Size:     o.Size,
		Created:  o.LastModified,
		Modified: o.LastModified,
	}
}

func fileSpecsFromSummaries(objs []provider.ObjectSummary) []FileSpec {
	out := make([]FileSpec, 0, len(objs))
	for _, o := range objs {
		out = append(out, fileSpecFromSummary(o))
	}
	return out
}
