package mesh

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Address constants.
const (
	// ConnectedNode addresses the node attached to the BLE link.
	ConnectedNode uint16 = 0x0000

	// Broadcast addresses every node of the mesh.
	Broadcast uint16 = 0xFFFF

	// GroupFlag marks a group address.
	GroupFlag uint16 = 0x8000

	// MinDeviceAddress is the lowest assignable device address.
	MinDeviceAddress uint16 = 1

	// MaxDeviceAddress is the highest assignable device address.
	MaxDeviceAddress uint16 = 255
)

// Credential length limits.
const (
	MinCredentialLength = 1
	MaxCredentialLength = 16
)

// ErrInvalidNetwork is returned when network credentials are out of range.
var ErrInvalidNetwork = errors.New("invalid mesh network")

// Network holds the credentials of a mesh network.
// Two networks are the same network when both fields are equal.
type Network struct {
	Name     string `json:"name" yaml:"name"`
	Password string `json:"password" yaml:"password"`
}

// FactoryNetwork is the network unprovisioned devices belong to.
var FactoryNetwork = Network{Name: "Srm@7478@a", Password: "475869"}

// Validate checks the credential lengths.
func (n Network) Validate() error {
	if l := utf8.RuneCountInString(n.Name); l < MinCredentialLength || l > MaxCredentialLength || len(n.Name) > MaxCredentialLength {
		return fmt.Errorf("%w: name length %d", ErrInvalidNetwork, l)
	}
	if l := utf8.RuneCountInString(n.Password); l < MinCredentialLength || l > MaxCredentialLength || len(n.Password) > MaxCredentialLength {
		return fmt.Errorf("%w: password length %d", ErrInvalidNetwork, l)
	}
	return nil
}

// IsFactory reports whether n is the factory network.
func (n Network) IsFactory() bool {
	return n == FactoryNetwork
}

// String returns the network name.
func (n Network) String() string {
	return n.Name
}

// IsGroupAddress reports whether addr is a group address.
func IsGroupAddress(addr uint16) bool {
	return addr != Broadcast && addr&GroupFlag != 0
}

// GroupAddress returns the group address for group number g.
func GroupAddress(g uint8) uint16 {
	return uint16(g) | GroupFlag
}

// IsDeviceAddress reports whether addr is an assignable device address.
func IsDeviceAddress(addr uint16) bool {
	return addr >= MinDeviceAddress && addr <= MaxDeviceAddress
}
