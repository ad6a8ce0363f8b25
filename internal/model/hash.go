package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows future algorithm migration.
const (
	DomainAnswers = "scentbox/answers/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// AnswerSetHash computes the content-addressed identity of an answer map.
// Insertion order does not matter. An empty map has a stable hash too.
func AnswerSetHash(answers Answers) (string, error) {
	canonical, err := MarshalCanonical(answers)
	if err != nil {
		return "", fmt.Errorf("AnswerSetHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainAnswers, canonical), nil
}

// MustAnswerSetHash is like AnswerSetHash but panics on error.
// Use only in tests or when answers are known to be valid.
func MustAnswerSetHash(answers Answers) string {
	h, err := AnswerSetHash(answers)
	if err != nil {
		panic(err)
	}
	return h
}
