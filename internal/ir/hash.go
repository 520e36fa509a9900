package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for fingerprints.
// Version suffix enables future algorithm migration.
const (
	DomainRequest = "jsonsql/request/v1"
	DomainPolicy  = "jsonsql/policy/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RequestFingerprint identifies a request by content.
// Two requests that differ only in key order or Unicode normalization
// share a fingerprint.
func RequestFingerprint(req IRValue) (string, error) {
	canonical, err := MarshalCanonical(req)
	if err != nil {
		return "", fmt.Errorf("RequestFingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRequest, canonical), nil
}

// PolicyFingerprint identifies a policy configuration by content.
func PolicyFingerprint(cfg IRValue) (string, error) {
	canonical, err := MarshalCanonical(cfg)
	if err != nil {
		return "", fmt.Errorf("PolicyFingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainPolicy, canonical), nil
}
