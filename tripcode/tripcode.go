// Package tripcode derives short display codes from "name#pass" tripcode
// sources using HMAC-SHA256.
//
// A tripcode lets a participant prove continuity of identity across
// anonymous messages without revealing who they are: the same pass always
// derives the same code, and the pass never leaves the participant.
package tripcode

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

// codeLen is the number of characters shown after the "!" marker.
const codeLen = 10

// maxSourceLen bounds the accepted "name#pass" source string.
const maxSourceLen = 30

// ErrInvalidFormat is returned for sources not shaped like "name#pass".
var ErrInvalidFormat = errors.New("tripcode: invalid format, expected name#pass")

// Valid reports whether source is an acceptable tripcode source: it must
// contain a "#" separating a non-empty name from a non-empty pass, fit in
// 30 characters and carry no newline.
func Valid(source string) bool {
	if len(source) > maxSourceLen || strings.ContainsRune(source, '\n') {
		return false
	}
	pos := strings.IndexByte(source, '#')
	return pos > 0 && pos < len(source)-1
}

// Derive splits source into its display name and derived code. The code is
// stable for a given pass and formatted as "!<10 chars>".
func Derive(source string) (name, code string, err error) {
	if !Valid(source) {
		return "", "", ErrInvalidFormat
	}
	pos := strings.IndexByte(source, '#')
	name = source[:pos]
	pass := source[pos+1:]

	mac := hmac.New(sha256.New, []byte(pass))
	mac.Write([]byte("lounge.tripcode"))
	sum := base64.RawStdEncoding.EncodeToString(mac.Sum(nil))
	return name, "!" + sum[:codeLen], nil
}
