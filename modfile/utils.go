package modfile

import (
	"bytes"
	"strings"
)

func convertCstring(data []byte) string {
	i := bytes.IndexByte(data, 0)
	if i == -1 {
		return string(data)
	}
	return string(data[:i])
}

func trimName(data []byte) string {
	return strings.TrimRight(convertCstring(data), " ")
}
