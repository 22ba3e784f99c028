// Package meshcrypto holds the cryptographic primitives of the mesh
// protocol and the login handshake built on them.
//
// The protocol uses AES-128 with byte-reversed keys and blocks. A login
// exchanges two 8-byte nonces over the pairing characteristic:
//
//	client -> node: 0x0C || localNonce(8) || check(8)
//	node -> client: 0x0D || remoteNonce(8) || check(8)
//
// where check is the first half of the pairing value computed from the
// network credentials and the sender's nonce. Both sides then derive the
// session key from the credentials and both nonces.
//
// Command frames are authenticated with a 2-byte CBC-MAC stored in the
// source address field and encrypted from byte 5 onward. Notifications
// carry their MAC in bytes 5 and 6 and are encrypted from byte 7 onward.
// The node MAC is part of every nonce, so a frame only decrypts on the link
// it was sent over.
package meshcrypto
