package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
)

func TestRoleString(t *testing.T) {
	tests := []struct {
		role Role
		want string
		uuid string
	}{
		{RoleNotify, "NOTIFY", mesh.NotifyCharacteristicUUID},
		{RoleCommand, "COMMAND", mesh.CommandCharacteristicUUID},
		{RolePairing, "PAIRING", mesh.PairingCharacteristicUUID},
		{RoleOTA, "OTA", mesh.OTACharacteristicUUID},
		{RoleFirmware, "FIRMWARE", mesh.FirmwareCharacteristicUUID},
		{Role(42), "UNKNOWN", ""},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.String())
			assert.Equal(t, tt.uuid, tt.role.UUID())
		})
	}
}

func TestRolesAreDistinct(t *testing.T) {
	seen := make(map[string]bool)
	for _, r := range Roles {
		assert.False(t, seen[r.UUID()], r.String())
		seen[r.UUID()] = true
	}
	assert.Len(t, seen, 5)
}
