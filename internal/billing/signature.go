package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/walletwise/walletwise/internal/apperr"
)

// SignatureHeader carries the provider's webhook signature.
const SignatureHeader = "Billing-Signature"

// signatureTolerance bounds how old a signed timestamp may be, limiting
// replay of captured deliveries.
const signatureTolerance = 5 * time.Minute

var ErrBadSignature = apperr.New(apperr.KindValidation, "invalid webhook signature")

// VerifySignature checks a header of the form "t=<unix>,v1=<hex>" where the
// hex digest is HMAC-SHA256(secret, "<unix>.<payload>").
func VerifySignature(payload []byte, header, secret string, now time.Time) error {
	timestamp, signature, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	age := now.Sub(time.Unix(timestamp, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return ErrBadSignature
	}

	expected := ComputeSignature(payload, timestamp, secret)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrBadSignature
	}
	return nil
}

// ComputeSignature returns the hex digest for a payload at a timestamp. Used
// by verification and by tests that forge provider deliveries.
func ComputeSignature(payload []byte, timestamp int64, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func parseSignatureHeader(header string) (int64, string, error) {
	var timestamp int64
	var signature string

	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, "", ErrBadSignature
			}
			timestamp = ts
		case "v1":
			signature = value
		}
	}

	if timestamp == 0 || signature == "" {
		return 0, "", ErrBadSignature
	}
	return timestamp, signature, nil
}
