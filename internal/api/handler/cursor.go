package handler

import (
	"encoding/base64"
	"fmt"
	"strconv"
)

// DecodeResultCursor returns the sequence number a page starts after
func DecodeResultCursor(cursorStr string) (int64, error) {
	if cursorStr == "" {
		return 0, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(cursorStr)
	if err != nil {
		return 0, err
	}

	seq, err := strconv.ParseInt(string(decoded), 10, 64)
	if err != nil || seq < 0 {
		return 0, fmt.Errorf("invalid cursor format")
	}
	return seq, nil
}

func EncodeResultCursor(seq int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(seq, 10)))
}
