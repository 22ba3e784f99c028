package meshcrypto

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
)

// ltkSalt separates long-term key derivation from other uses of the
// credentials.
var ltkSalt = []byte("telink-mesh-ltk")

// DeriveLTK derives the 16-byte long-term key of a network from its
// credentials. Every client derives the same key for the same network.
func DeriveLTK(network mesh.Network) [16]byte {
	secret := []byte(network.Name + "\x00" + network.Password)
	r := hkdf.New(sha256.New, secret, ltkSalt, []byte("ltk"))
	var ltk [16]byte
	if _, err := io.ReadFull(r, ltk[:]); err != nil {
		// 16 bytes are far below the HKDF output limit
		panic(err)
	}
	return ltk
}

// NetworkPackets returns the three pairing characteristic writes that move
// the connected node into network: name, password and long-term key. The
// last byte of the key packet tells the node whether it joins as part of
// a batch (isMesh) or alone.
func NetworkPackets(p Primitives, key Key, network mesh.Network, isMesh bool) [][]byte {
	name := p.EncryptNetworkValue([]byte(network.Name), key)
	pass := p.EncryptNetworkValue([]byte(network.Password), key)
	ltk := DeriveLTK(network)
	encLTK := p.EncryptNetworkValue(ltk[:], key)

	flag := byte(0x00)
	if isMesh {
		flag = 0x01
	}
	return [][]byte{
		append([]byte{OpNetworkName}, name[:]...),
		append([]byte{OpNetworkPassword}, pass[:]...),
		append(append([]byte{OpNetworkLTK}, encLTK[:]...), flag),
	}
}

// NetworkConfirmed reports whether a pairing characteristic read after the
// network writes signals acceptance.
func NetworkConfirmed(value []byte) bool {
	return len(value) > 0 && value[0] == OpNetworkConfirmed
}
