package meshcrypto

import (
	"crypto/aes"
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	"github.com/telinkmesh/telinkmesh-go/pkg/wire"
)

// Key is a 16-byte AES key.
type Key [16]byte

// Primitives is the set of cryptographic operations the session needs.
// Telink is the implementation used by real nodes; tests may substitute
// their own.
type Primitives interface {
	RandomBytes(n int) ([]byte, error)
	EncryptPairingValue(name, password string, nonce []byte) [16]byte
	DeriveSessionKey(name, password string, local, remote []byte) Key
	EncryptCommand(frame wire.Frame, mac []byte, key Key) []byte
	DecryptNotification(data []byte, mac []byte, key Key) (wire.Frame, bool)
	EncryptNetworkValue(value []byte, key Key) [16]byte
	BuildOtaChunk(data []byte, index int) []byte
	BuildOtaEndMarker(total int) []byte
}

// Telink implements Primitives with the scheme used by mesh nodes.
// The zero value is ready to use.
type Telink struct{}

var _ Primitives = Telink{}

// RandomBytes returns n bytes from the system CSPRNG.
func (Telink) RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("random bytes: %w", err)
	}
	return b, nil
}

// encrypt is AES-128 on byte-reversed key and block, with the result
// reversed back.
func encrypt(key, block [16]byte) [16]byte {
	var rk, rb, out [16]byte
	for i := 0; i < 16; i++ {
		rk[i] = key[15-i]
		rb[i] = block[15-i]
	}
	c, err := aes.NewCipher(rk[:])
	if err != nil {
		// a 16-byte key never fails
		panic(err)
	}
	c.Encrypt(out[:], rb[:])
	var res [16]byte
	for i := 0; i < 16; i++ {
		res[i] = out[15-i]
	}
	return res
}

// credentials returns name XOR password, each zero padded to 16 bytes.
func credentials(name, password string) [16]byte {
	var n, p, x [16]byte
	copy(n[:], name)
	copy(p[:], password)
	for i := range x {
		x[i] = n[i] ^ p[i]
	}
	return x
}

// EncryptPairingValue returns nonce[0:8] followed by the first half of the
// credentials encrypted under the zero padded nonce.
func (Telink) EncryptPairingValue(name, password string, nonce []byte) [16]byte {
	var k [16]byte
	copy(k[:8], nonce)
	enc := encrypt(k, credentials(name, password))
	var v [16]byte
	copy(v[:8], nonce)
	copy(v[8:], enc[:8])
	return v
}

// DeriveSessionKey encrypts local[0:8] || remote[0:8] under the credentials.
func (Telink) DeriveSessionKey(name, password string, local, remote []byte) Key {
	var block [16]byte
	copy(block[:8], local)
	copy(block[8:], remote)
	return Key(encrypt(credentials(name, password), block))
}

// EncryptNetworkValue encrypts a zero padded credential or key under the
// session key.
func (Telink) EncryptNetworkValue(value []byte, key Key) [16]byte {
	var block [16]byte
	copy(block[:], value)
	return encrypt(key, block)
}

// DecryptNetworkValue reverses EncryptNetworkValue. Nodes use it; the
// client never needs to.
func (Telink) DecryptNetworkValue(enc [16]byte, key Key) [16]byte {
	var rk, rb, out [16]byte
	for i := 0; i < 16; i++ {
		rk[i] = key[15-i]
		rb[i] = enc[15-i]
	}
	c, err := aes.NewCipher(rk[:])
	if err != nil {
		panic(err)
	}
	c.Decrypt(out[:], rb[:])
	var res [16]byte
	for i := 0; i < 16; i++ {
		res[i] = out[15-i]
	}
	return res
}

// keystream xors data with the counter keystream seeded by iv.
func keystream(key Key, iv [16]byte, data []byte) {
	var block [16]byte
	for i := range data {
		if i%16 == 0 {
			block = encrypt(key, iv)
			iv[0]++
		}
		data[i] ^= block[i%16]
	}
}

// commandMAC is the CBC-MAC over frame bytes 5..19.
func commandMAC(key Key, mac []byte, f []byte) [2]byte {
	iv := [16]byte{mac[0], mac[1], mac[2], mac[3], 0x01, f[0], f[1], f[2], 15}
	for i := 0; i < 15; i++ {
		iv[i] ^= f[i+5]
	}
	t := encrypt(key, iv)
	return [2]byte{t[0], t[1]}
}

func commandIV(mac []byte, f []byte) [16]byte {
	return [16]byte{0, mac[0], mac[1], mac[2], mac[3], 0x01, f[0], f[1], f[2]}
}

// EncryptCommand authenticates and encrypts an outbound frame for the node
// with the given MAC (least significant byte first, at least 4 bytes).
func (Telink) EncryptCommand(frame wire.Frame, mac []byte, key Key) []byte {
	out := frame
	tag := commandMAC(key, mac, out[:])
	out[3], out[4] = tag[0], tag[1]
	keystream(key, commandIV(mac, out[:]), out[5:])
	return out[:]
}

// DecryptCommand is the node side of EncryptCommand. The source address
// field holds the MAC and is returned as zero.
func (Telink) DecryptCommand(data []byte, mac []byte, key Key) (wire.Frame, bool) {
	var f wire.Frame
	if len(data) != wire.FrameSize || len(mac) < 4 {
		return f, false
	}
	copy(f[:], data)
	keystream(key, commandIV(mac, f[:]), f[5:])
	tag := commandMAC(key, mac, f[:])
	if subtle.ConstantTimeCompare(tag[:], data[3:5]) != 1 {
		return wire.Frame{}, false
	}
	f[3], f[4] = 0, 0
	return f, true
}

func notificationIV(mac []byte, f []byte) [16]byte {
	return [16]byte{mac[0], mac[1], mac[2], f[0], f[1], f[2], f[3], f[4]}
}

// notificationMAC is the CBC-MAC over frame bytes 7..19.
func notificationMAC(key Key, mac []byte, f []byte) [2]byte {
	b0 := notificationIV(mac, f)
	b0[8] = 13
	x := encrypt(key, b0)
	for i := 0; i < 13; i++ {
		x[i] ^= f[7+i]
	}
	t := encrypt(key, x)
	return [2]byte{t[0], t[1]}
}

// EncryptNotification is the node side of DecryptNotification.
func (Telink) EncryptNotification(frame wire.Frame, mac []byte, key Key) []byte {
	out := frame
	tag := notificationMAC(key, mac, out[:])
	out[5], out[6] = tag[0], tag[1]
	keystream(key, notificationIV(mac, out[:]), out[7:])
	return out[:]
}

// DecryptNotification decrypts and authenticates an inbound frame. It
// returns false on a wrong length or MAC mismatch. Bytes 5 and 6 of the
// result still hold the MAC.
func (Telink) DecryptNotification(data []byte, mac []byte, key Key) (wire.Frame, bool) {
	var f wire.Frame
	if len(data) != wire.FrameSize || len(mac) < 3 {
		return f, false
	}
	copy(f[:], data)
	keystream(key, notificationIV(mac, f[:]), f[7:])
	tag := notificationMAC(key, mac, f[:])
	if subtle.ConstantTimeCompare(tag[:], data[5:7]) != 1 {
		return wire.Frame{}, false
	}
	return f, true
}
