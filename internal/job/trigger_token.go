package job

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"
)

// deriveKey expands the operator-supplied secret into a key scoped to one
// job name via HKDF, so a token leaked for one job's trigger endpoint
// cannot be replayed to sign tokens for another.
func deriveKey(secret []byte, jobName string) ([]byte, error) {
	key := make([]byte, sha256.Size)
	kdf := hkdf.New(sha256.New, secret, nil, []byte("pgframe-job-trigger:"+jobName))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("job: deriving trigger key: %w", err)
	}
	return key, nil
}

// SignTriggerToken produces a short-lived, HMAC-signed token authorizing a
// manual out-of-band trigger of the named cron job (exposed by the HTTP
// layer as an operator escape hatch; verification happens here so that
// surface does not need its own crypto). The token encodes the job name
// and an expiry timestamp so a leaked token cannot be replayed forever.
func SignTriggerToken(secret []byte, jobName string, ttl time.Duration) (string, error) {
	key, err := deriveKey(secret, jobName)
	if err != nil {
		return "", err
	}
	expires := time.Now().Add(ttl).Unix()
	payload := jobName + "." + strconv.FormatInt(expires, 10)
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(payload))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return payload + "." + sig, nil
}

// VerifyTriggerToken checks the signature and expiry produced by
// SignTriggerToken, returning the job name it authorizes.
func VerifyTriggerToken(secret []byte, token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("job: malformed trigger token")
	}
	jobName, expiresStr, sig := parts[0], parts[1], parts[2]

	key, err := deriveKey(secret, jobName)
	if err != nil {
		return "", err
	}
	payload := jobName + "." + expiresStr
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(payload))
	expectedSig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	if subtle.ConstantTimeCompare([]byte(sig), []byte(expectedSig)) != 1 {
		return "", fmt.Errorf("job: trigger token signature mismatch")
	}

	expires, err := strconv.ParseInt(expiresStr, 10, 64)
	if err != nil {
		return "", fmt.Errorf("job: trigger token has a malformed expiry")
	}
	if time.Now().Unix() > expires {
		return "", fmt.Errorf("job: trigger token expired")
	}

	return jobName, nil
}
