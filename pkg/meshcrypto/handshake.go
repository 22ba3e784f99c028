package meshcrypto

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
)

// Pairing characteristic opcodes.
const (
	OpLoginRequest     byte = 0x0C
	OpLoginResponse    byte = 0x0D
	OpNetworkName      byte = 0x04
	OpNetworkPassword  byte = 0x05
	OpNetworkLTK       byte = 0x06
	OpNetworkConfirmed byte = 0x07
)

// NonceSize is the size of each handshake nonce.
const NonceSize = 8

// Handshake errors.
var (
	ErrLoginRejected     = errors.New("login rejected by node")
	ErrMalformedResponse = errors.New("malformed login response")
	ErrSelfCheck         = errors.New("login response failed verification")
)

// Handshake holds the client side of one login exchange. It is not reused
// across connections.
type Handshake struct {
	crypto  Primitives
	network mesh.Network
	local   [NonceSize]byte
}

// NewHandshake draws a fresh local nonce for a login to network.
func NewHandshake(p Primitives, network mesh.Network) (*Handshake, error) {
	nonce, err := p.RandomBytes(NonceSize)
	if err != nil {
		return nil, err
	}
	h := &Handshake{crypto: p, network: network}
	copy(h.local[:], nonce)
	return h, nil
}

// Request returns the bytes to write to the pairing characteristic.
func (h *Handshake) Request() []byte {
	v := h.crypto.EncryptPairingValue(h.network.Name, h.network.Password, h.local[:])
	return append([]byte{OpLoginRequest}, v[:]...)
}

// Complete verifies the node's response and derives the session key.
func (h *Handshake) Complete(resp []byte) (Key, error) {
	if len(resp) == 0 || resp[0] != OpLoginResponse {
		return Key{}, ErrLoginRejected
	}
	if len(resp) < 1+2*NonceSize {
		return Key{}, fmt.Errorf("%w: %d bytes", ErrMalformedResponse, len(resp))
	}
	remote := resp[1 : 1+NonceSize]
	expect := h.crypto.EncryptPairingValue(h.network.Name, h.network.Password, remote)
	if subtle.ConstantTimeCompare(expect[NonceSize:], resp[1+NonceSize:1+2*NonceSize]) != 1 {
		return Key{}, ErrSelfCheck
	}
	return h.crypto.DeriveSessionKey(h.network.Name, h.network.Password, h.local[:], remote), nil
}

// LoginResponse builds the node side answer to a login request. It returns
// ErrLoginRejected when the request does not match network.
func LoginResponse(p Primitives, network mesh.Network, req []byte, remote []byte) ([]byte, Key, error) {
	if len(req) < 1+2*NonceSize || req[0] != OpLoginRequest {
		return nil, Key{}, ErrMalformedResponse
	}
	local := req[1 : 1+NonceSize]
	expect := p.EncryptPairingValue(network.Name, network.Password, local)
	if subtle.ConstantTimeCompare(expect[NonceSize:], req[1+NonceSize:1+2*NonceSize]) != 1 {
		return nil, Key{}, ErrLoginRejected
	}
	v := p.EncryptPairingValue(network.Name, network.Password, remote)
	key := p.DeriveSessionKey(network.Name, network.Password, local, remote)
	return append([]byte{OpLoginResponse}, v[:]...), key, nil
}
