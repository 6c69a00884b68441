package utils

import "github.com/dustin/go-humanize"

// FormatBytes renders a byte count as a human-readable IEC size string
// (e.g. "18.5 GiB"). Zero renders as "0 B".
func FormatBytes(size int64) string {
	if size < 0 {
		size = 0
	}
	return humanize.IBytes(uint64(size))
}
