package addressparser

// Params names the version bytes a chain uses for its Base58Check
// address encodings, mirroring the teacher's dagconfig.Params in spirit
// but trimmed to only what address classification needs: carversync
// never validates proof-of-work or builds blocks, so it has no use for
// the rest of a full chaincfg.Params.
type Params struct {
	PubKeyHashAddrID byte
	ScriptHashAddrID byte
}

// MainNetParams are the default version bytes used when the operator's
// configuration does not override them.
var MainNetParams = Params{
	PubKeyHashAddrID: 0x19, // 'B' prefix, matching the teacher lineage's PoS-coin fork conventions
	ScriptHashAddrID: 0x55,
}

// TestNetParams mirror MainNetParams with btcd-family testnet defaults.
var TestNetParams = Params{
	PubKeyHashAddrID: 0x8B,
	ScriptHashAddrID: 0x13,
}
