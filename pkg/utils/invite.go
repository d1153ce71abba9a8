package utils

import (
	"crypto/rand"
	"math/big"
)

const (
	InviteCodeLength   = 8
	inviteCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateInviteCode returns an uppercase alphanumeric group invite code.
// Uniqueness is enforced by the groups.invite_code index, not here.
func GenerateInviteCode() (string, error) {
	code := make([]byte, InviteCodeLength)
	max := big.NewInt(int64(len(inviteCodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = inviteCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}
