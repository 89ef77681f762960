package provider

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Location is a parsed input or destination reference.
type Location struct {
	Type ProviderType

	// Bucket is set for s3 locations.
	Bucket string

	// Key is the object key for s3, or the filesystem path for file.
	Key string
}

// ParseLocation accepts s3://bucket/key, file:///path, or a plain path.
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, fmt.Errorf("empty location")
	}
	if rest, ok := strings.CutPrefix(raw, "s3://"); ok {
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return Location{}, fmt.Errorf("s3 location %q has no bucket", raw)
		}
		return Location{Type: ProviderS3, Bucket: bucket, Key: key}, nil
	}
	if strings.Contains(raw, "://") && !strings.HasPrefix(raw, "file://") {
		return Location{}, fmt.Errorf("unsupported location scheme: %q", raw)
	}
	path := strings.TrimPrefix(raw, "file://")
	if path == "" {
		return Location{}, fmt.Errorf("file location %q has no path", raw)
	}
	return Location{Type: ProviderFile, Key: filepath.Clean(path)}, nil
}

// String renders the location in the form ParseLocation accepts.
func (l Location) String() string {
	if l.Type == ProviderS3 {
		return "s3://" + l.Bucket + "/" + l.Key
	}
	return l.Key
}

// Base is the last path segment of the key.
func (l Location) Base() string {
	key := strings.TrimRight(l.Key, "/")
	if l.Type == ProviderFile {
		return filepath.Base(key)
	}
	return key[strings.LastIndex(key, "/")+1:]
}

// Join appends a path segment to the key.
func (l Location) Join(name string) Location {
	out := l
	if l.Type == ProviderFile {
		out.Key = filepath.Join(l.Key, name)
		return out
	}
	if out.Key != "" && !strings.HasSuffix(out.Key, "/") {
		out.Key += "/"
	}
	out.Key += name
	return out
}
