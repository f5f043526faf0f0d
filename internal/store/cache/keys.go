package cache

import (
	"strconv"
	"strings"
)

func formatKey(parts ...string) string {
	return strings.Join(parts, ":")
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func fmtInt(v int) string {
	return strconv.Itoa(v)
}
