package mesh

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// advData builds manufacturer data the way a node puts it on air.
func advData(mac [4]byte, rawType, subType uint8, shortAddr uint8) []byte {
	d := make([]byte, 20)
	d[0], d[1] = 0x11, 0x02
	d[2], d[3] = 0x00, 0x01
	d[4], d[5], d[6], d[7] = mac[3], mac[2], mac[1], mac[0]
	d[8], d[9] = 0x11, 0x02
	d[14], d[15] = rawType, subType
	d[17] = shortAddr
	return d
}

func TestNodeFromAdvertisement(t *testing.T) {
	data := advData([4]byte{0xA1, 0xB2, 0xC3, 0xD4}, 0x01, 0x35, 7)

	n, err := NodeFromAdvertisement("peer-1", "Srm@7478@a", -60, data)
	require.NoError(t, err)

	assert.Equal(t, "peer-1", n.PeerAddress)
	assert.Equal(t, uint16(7), n.ShortAddress)
	assert.Equal(t, uint32(0xA1B2C3D4), n.MACValue())
	assert.Equal(t, "A1B2C3D4", n.MACString())
	assert.Equal(t, []byte{0xD4, 0xC3, 0xB2, 0xA1}, n.CryptoMAC())
	assert.Equal(t, uint16(0x0135), n.ProductID)
	assert.Equal(t, CategoryLight, n.DeviceType.Category())
	assert.True(t, n.DeviceType.Capabilities().Has(CapRGB|CapColorTemperature))
}

func TestNodeFromAdvertisementRejects(t *testing.T) {
	good := advData([4]byte{1, 2, 3, 4}, 0x01, 0x31, 1)

	tests := []struct {
		name   string
		data   []byte
		expect error
	}{
		{"short", good[:17], ErrShortManufacturerData},
		{"foreign vendor", append([]byte{0x4C, 0x00}, good[2:]...), ErrForeignVendor},
		{"foreign product", func() []byte {
			d := append([]byte(nil), good...)
			d[8] = 0x00
			return d
		}(), ErrForeignVendor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NodeFromAdvertisement("p", "n", -50, tt.data)
			assert.True(t, errors.Is(err, tt.expect), "got %v", err)
		})
	}
}

func TestNodeIdentityIsMAC(t *testing.T) {
	a, err := NodeFromAdvertisement("p1", "a", -40, advData([4]byte{1, 2, 3, 4}, 0x01, 0x31, 1))
	require.NoError(t, err)
	b, err := NodeFromAdvertisement("p2", "b", -70, advData([4]byte{1, 2, 3, 4}, 0x01, 0x32, 9))
	require.NoError(t, err)
	c, err := NodeFromAdvertisement("p1", "a", -40, advData([4]byte{1, 2, 3, 5}, 0x01, 0x31, 1))
	require.NoError(t, err)

	assert.True(t, a.SameDevice(b))
	assert.False(t, a.SameDevice(c))
}

func TestDeviceTypeCategories(t *testing.T) {
	tests := []struct {
		raw, sub uint8
		expect   Category
	}{
		{0x01, 0x31, CategoryLight},
		{0x01, 0x3A, CategoryRFPA},
		{0x02, 0x00, CategoryRemote},
		{0x14, 0x00, CategoryRemote},
		{0x04, 0x00, CategorySensor},
		{0x05, 0x00, CategoryTransmitter},
		{0x06, 0x00, CategoryPeripheral},
		{0x07, 0x00, CategoryCurtain},
		{0x08, 0x00, CategoryOutlet},
		{0x09, 0x00, CategoryUnsupported},
		{0x15, 0x00, CategoryCustomPanel},
		{0x50, 0x00, CategoryBridge},
		{0xEE, 0x00, CategoryUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.expect.String(), func(t *testing.T) {
			assert.Equal(t, tt.expect, NewDeviceType(tt.raw, tt.sub).Category())
		})
	}
}

func TestDeviceTypePredicates(t *testing.T) {
	light := NewDeviceType(0x01, 0x33)
	remote := NewDeviceType(0x02, 0x00)
	rfpa := NewDeviceType(0x01, 0x3A)
	unsupported := NewDeviceType(0x09, 0x00)

	assert.True(t, light.IsSafeConnection())
	assert.False(t, remote.IsSafeConnection())

	assert.True(t, remote.SupportsSingleAdd())
	assert.False(t, remote.SupportsMeshAdd())
	assert.False(t, unsupported.SupportsSingleAdd())

	assert.Equal(t, DefaultPacingInterval, light.PacingInterval())
	assert.Equal(t, RFPAPacingInterval, rfpa.PacingInterval())
	assert.Equal(t, Capabilities(0), rfpa.Capabilities())
	assert.Equal(t, Capabilities(0), remote.Capabilities())
}

func TestCapabilitiesString(t *testing.T) {
	assert.Equal(t, "NONE", Capabilities(0).String())
	assert.Equal(t, "ON_OFF|BRIGHTNESS|WHITE|RGB", NewDeviceType(0x01, 0x34).Capabilities().String())
}

func TestNetworkValidate(t *testing.T) {
	assert.NoError(t, FactoryNetwork.Validate())
	assert.True(t, FactoryNetwork.IsFactory())
	assert.False(t, Network{Name: "home", Password: "1234"}.IsFactory())

	assert.ErrorIs(t, Network{Name: "", Password: "x"}.Validate(), ErrInvalidNetwork)
	assert.ErrorIs(t, Network{Name: "x", Password: ""}.Validate(), ErrInvalidNetwork)
	assert.ErrorIs(t, Network{Name: strings.Repeat("a", 17), Password: "x"}.Validate(), ErrInvalidNetwork)
	assert.NoError(t, Network{Name: strings.Repeat("a", 16), Password: strings.Repeat("b", 16)}.Validate())
}

func TestAddressHelpers(t *testing.T) {
	assert.True(t, IsGroupAddress(0x8001))
	assert.False(t, IsGroupAddress(Broadcast))
	assert.False(t, IsGroupAddress(5))
	assert.Equal(t, uint16(0x8003), GroupAddress(3))
	assert.True(t, IsDeviceAddress(1))
	assert.True(t, IsDeviceAddress(255))
	assert.False(t, IsDeviceAddress(0))
	assert.False(t, IsDeviceAddress(256))
}
