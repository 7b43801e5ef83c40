// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addressparser

import "testing"

func TestBase58EncodeDecodeRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0x00},
		{0x00, 0x00, 0x01},
		{0x01, 0x02, 0x03, 0x04, 0x05},
		{0xff, 0xff, 0xff, 0xff},
	}
	for _, b := range cases {
		encoded := base58Encode(b)
		decoded := base58Decode(encoded)
		if string(decoded) != string(b) {
			t.Errorf("round trip of %x: got %x, want %x", b, decoded, b)
		}
	}
}

func TestBase58DecodeRejectsUnknownCharacters(t *testing.T) {
	if base58Decode("0OIl") != nil {
		t.Fatalf("expected nil for a string made entirely of excluded characters")
	}
}

func TestCheckEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a,
		0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10, 0x11, 0x12, 0x13, 0x14}

	encoded := checkEncode(payload, MainNetParams.PubKeyHashAddrID)
	decodedPayload, version, err := checkDecode(encoded)
	if err != nil {
		t.Fatalf("checkDecode returned an error: %s", err)
	}
	if version != MainNetParams.PubKeyHashAddrID {
		t.Errorf("version = %#x, want %#x", version, MainNetParams.PubKeyHashAddrID)
	}
	if string(decodedPayload) != string(payload) {
		t.Errorf("payload = %x, want %x", decodedPayload, payload)
	}
}

func TestCheckDecodeRejectsCorruptedChecksum(t *testing.T) {
	payload := []byte{0xaa, 0xbb, 0xcc, 0xdd}
	encoded := checkEncode(payload, MainNetParams.PubKeyHashAddrID)

	corrupted := []byte(encoded)
	last := corrupted[len(corrupted)-1]
	if last == alphabet[0] {
		corrupted[len(corrupted)-1] = alphabet[1]
	} else {
		corrupted[len(corrupted)-1] = alphabet[0]
	}

	if _, _, err := checkDecode(string(corrupted)); err != errChecksumMismatch {
		t.Fatalf("checkDecode on a corrupted string = %v, want errChecksumMismatch", err)
	}
}

func TestCheckDecodeRejectsShortInput(t *testing.T) {
	if _, _, err := checkDecode("1"); err != errChecksumMismatch {
		t.Fatalf("checkDecode on too-short input = %v, want errChecksumMismatch", err)
	}
}
