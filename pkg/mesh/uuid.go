package mesh

// GATT identifiers of a mesh node.
const (
	ServiceUUID               = "00010203-0405-0607-0809-0a0b0c0d1910"
	NotifyCharacteristicUUID  = "00010203-0405-0607-0809-0a0b0c0d1911"
	CommandCharacteristicUUID = "00010203-0405-0607-0809-0a0b0c0d1912"
	OTACharacteristicUUID     = "00010203-0405-0607-0809-0a0b0c0d1913"
	PairingCharacteristicUUID = "00010203-0405-0607-0809-0a0b0c0d1914"

	DeviceInformationServiceUUID = "0000180a-0000-1000-8000-00805f9b34fb"
	FirmwareCharacteristicUUID   = "00002a26-0000-1000-8000-00805f9b34fb"
)
