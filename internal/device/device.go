package device

// Record is a smart plug as reported by the vendor cloud. Records are fetched
// fresh for every request and never cached.
type Record struct {
	UUID   string `json:"uuid"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Online bool   `json:"online"`
}

// Names returns the display names of devices in list order.
func Names(devices []Record) []string {
	names := make([]string, len(devices))
	for i, d := range devices {
		names[i] = d.Name
	}
	return names
}

// FilterType returns the devices of the given type. An empty typ keeps all.
func FilterType(devices []Record, typ string) []Record {
	if typ == "" {
		return devices
	}
	out := make([]Record, 0, len(devices))
	for _, d := range devices {
		if d.Type == typ {
			out = append(out, d)
		}
	}
	return out
}

// ByUUID returns the device with the given identity.
func ByUUID(devices []Record, uuid string) (Record, bool) {
	for _, d := range devices {
		if d.UUID == uuid {
			return d, true
		}
	}
	return Record{}, false
}
