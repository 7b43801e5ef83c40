// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addressparser

import (
	"crypto/sha256"
	"errors"
	"math/big"
)

var errChecksumMismatch = errors.New("addressparser: base58check checksum mismatch")

const alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var (
	bigRadix = big.NewInt(58)
	bigZero  = big.NewInt(0)
)

// base58Encode encodes b using the standard (Bitcoin-family) modified
// base58 alphabet that omits 0, O, I and l.
func base58Encode(b []byte) string {
	x := new(big.Int).SetBytes(b)

	answer := make([]byte, 0, len(b)*136/100)
	mod := new(big.Int)
	for x.Cmp(bigZero) > 0 {
		x.DivMod(x, bigRadix, mod)
		answer = append(answer, alphabet[mod.Int64()])
	}

	for _, i := range b {
		if i != 0 {
			break
		}
		answer = append(answer, alphabet[0])
	}

	for i, j := 0, len(answer)-1; i < j; i, j = i+1, j-1 {
		answer[i], answer[j] = answer[j], answer[i]
	}
	return string(answer)
}

// base58Decode decodes a modified base58 string, as encoded by
// base58Encode.
func base58Decode(s string) []byte {
	answer := big.NewInt(0)
	scratch := new(big.Int)
	for _, c := range []byte(s) {
		idx := indexOf(c)
		if idx == -1 {
			return nil
		}
		scratch.SetInt64(int64(idx))
		answer.Mul(answer, bigRadix)
		answer.Add(answer, scratch)
	}

	decoded := answer.Bytes()
	numZeros := 0
	for numZeros < len(s) && s[numZeros] == alphabet[0] {
		numZeros++
	}
	out := make([]byte, numZeros+len(decoded))
	copy(out[numZeros:], decoded)
	return out
}

func indexOf(c byte) int {
	for i := 0; i < len(alphabet); i++ {
		if alphabet[i] == c {
			return i
		}
	}
	return -1
}

func checksum(input []byte) (cksum [4]byte) {
	h := sha256.Sum256(input)
	h2 := sha256.Sum256(h[:])
	copy(cksum[:], h2[:4])
	return
}

// checkEncode prepends version to payload, appends a double-sha256
// checksum, and base58-encodes the result — the Base58Check scheme used
// for P2PKH/P2SH addresses.
func checkEncode(payload []byte, version byte) string {
	b := make([]byte, 0, 1+len(payload)+4)
	b = append(b, version)
	b = append(b, payload...)
	cksum := checksum(b)
	b = append(b, cksum[:]...)
	return base58Encode(b)
}

// checkDecode decodes a Base58Check string, validating its checksum and
// returning the payload and version byte.
func checkDecode(input string) (payload []byte, version byte, err error) {
	decoded := base58Decode(input)
	if len(decoded) < 5 {
		return nil, 0, errChecksumMismatch
	}
	version = decoded[0]
	cksum := checksum(decoded[:len(decoded)-4])
	if string(cksum[:]) != string(decoded[len(decoded)-4:]) {
		return nil, 0, errChecksumMismatch
	}
	payload = decoded[1 : len(decoded)-4]
	return payload, version, nil
}
