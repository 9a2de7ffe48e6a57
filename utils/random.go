package utils

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

const referralCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateReferralCode returns a random uppercase code of n characters.
// Ambiguous characters (0/O, 1/I) are excluded from the alphabet.
func GenerateReferralCode(n int) (string, error) {
	max := big.NewInt(int64(len(referralCodeAlphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = referralCodeAlphabet[idx.Int64()]
	}
	return string(buf), nil
}

// GenerateHexToken returns a random lowercase hex string of 2*n characters
func GenerateHexToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
