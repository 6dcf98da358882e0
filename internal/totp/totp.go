// Package totp generates RFC 6238 time-based one-time passwords for stored
// authenticator secrets.
package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultStep is the RFC 6238 default time step.
	DefaultStep = 30 * time.Second
	// Digits is the code length produced.
	Digits = 6

	secretSize = 20 // 160-bit generated secret
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSecret returns a fresh base32-encoded 160-bit secret.
func GenerateSecret() (string, error) {
	secret := make([]byte, secretSize)
	if _, err := rand.Read(secret); err != nil {
		return "", err
	}
	return b32.EncodeToString(secret), nil
}

// Code computes the 6-digit code for a base32 secret at the given time.
// Output matches any compliant authenticator app for the same secret and step.
func Code(secret string, when time.Time, step time.Duration) (string, error) {
	secretBytes, err := decodeSecret(secret)
	if err != nil {
		return "", fmt.Errorf("totp: bad secret: %w", err)
	}
	if step <= 0 {
		step = DefaultStep
	}
	counter := uint64(when.Unix() / int64(step/time.Second))
	return hotp(secretBytes, counter), nil
}

// CodeNow computes the code for the current time with the default step.
func CodeNow(secret string) (string, error) {
	return Code(secret, time.Now(), DefaultStep)
}

// RemainingSeconds reports how long the current code stays valid.
func RemainingSeconds(when time.Time, step time.Duration) int {
	if step <= 0 {
		step = DefaultStep
	}
	s := int64(step / time.Second)
	return int(s - when.Unix()%s)
}

// ProvisionURI renders an otpauth:// URI for enrolling the secret in an
// authenticator app.
func ProvisionURI(account, issuer, secret string) string {
	period := int(DefaultStep / time.Second)
	return fmt.Sprintf("otpauth://totp/%s:%s?secret=%s&issuer=%s&algorithm=SHA1&digits=%d&period=%d",
		url.PathEscape(issuer), url.PathEscape(account), secret, url.QueryEscape(issuer), Digits, period)
}

// hotp is RFC 4226: HMAC-SHA-1 over the big-endian counter, dynamic
// truncation, decimal mod 10^6, zero-padded.
func hotp(secret []byte, counter uint64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], counter)

	mac := hmac.New(sha1.New, secret)
	mac.Write(buf[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0F
	trunc := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7FFFFFFF
	return fmt.Sprintf("%0*d", Digits, trunc%1000000)
}

func decodeSecret(secret string) ([]byte, error) {
	s := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(secret), " ", ""))
	s = strings.TrimRight(s, "=")
	return b32.DecodeString(s)
}
