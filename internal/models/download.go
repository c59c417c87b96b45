// Package models defines data structures and domain types.
package models

import (
	"strings"
	"time"

	"github.com/j-veylop/bidmanager-cli/internal/dbm"
)

// DownloadMethod selects how a report file is transferred.
type DownloadMethod string

// Download methods, named by their --download-method values.
const (
	// MethodWholeFile transfers the resource straight to the destination path.
	MethodWholeFile DownloadMethod = "URLRETRIEVE"
	// MethodStreamCopy copies the response stream through a fixed buffer.
	MethodStreamCopy DownloadMethod = "COPYFILEOBJ"
	// MethodChunkedRead reads the response in ~100 blocks sized from Content-Length.
	MethodChunkedRead DownloadMethod = "READCHUNK"
)

// DownloadMethods lists the valid methods.
var DownloadMethods = []DownloadMethod{MethodWholeFile, MethodStreamCopy, MethodChunkedRead}

var downloadMethodAliases = map[string]DownloadMethod{
	"urlretrieve":  MethodWholeFile,
	"whole-file":   MethodWholeFile,
	"copyfileobj":  MethodStreamCopy,
	"stream-copy":  MethodStreamCopy,
	"readchunk":    MethodChunkedRead,
	"chunked-read": MethodChunkedRead,
}

// ParseDownloadMethod accepts the flag values and their
// descriptive aliases, case-insensitively.
func ParseDownloadMethod(s string) (DownloadMethod, error) {
	if m, ok := downloadMethodAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return m, nil
	}
	return "", dbm.InvalidArgument(
		"invalid download method %q, acceptable values: URLRETRIEVE, COPYFILEOBJ, READCHUNK", s)
}

// Label returns a short human name for the method.
func (m DownloadMethod) Label() string {
	switch m {
	case MethodWholeFile:
		return "whole-file"
	case MethodStreamCopy:
		return "stream-copy"
	case MethodChunkedRead:
		return "chunked-read"
	default:
		return string(m)
	}
}

// DownloadResult describes a completed transfer.
type DownloadResult struct {
	Method   DownloadMethod
	Path     string
	Bytes    int64
	Declared int64 // -1 when the source did not declare a length
	Elapsed  time.Duration
}
