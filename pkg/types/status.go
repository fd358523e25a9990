package types

// DeviceStatus is the operational snapshot a running device reports on its
// ops endpoint. Role specific fields are omitted when empty.
type DeviceStatus struct {
	ID      ID     `json:"id"`
	Name    Name   `json:"name"`
	Model   Model  `json:"model"`
	Address string `json:"address"`

	Peers      map[string]int `json:"peers,omitempty"`
	Buffered   map[string]int `json:"buffered,omitempty"`
	Generators int            `json:"generators,omitempty"`
}
