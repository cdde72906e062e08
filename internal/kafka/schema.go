package kafka

// StatusChanged is published on the status topic for every transition.
type StatusChanged struct {
	EventID   string `json:"event_id"`
	DeviceKey string `json:"device_key"`
	Status    string `json:"status"`
	ChangedAt int64  `json:"changed_at"`
}

// StructuredConnectRecord carries the schema inline so a Kafka Connect JDBC
// sink can consume the status topic without a registry.
type StructuredConnectRecord struct {
	Schema  Schema        `json:"schema"`
	Payload StatusChanged `json:"payload"`
}

type Schema struct {
	Type     string  `json:"type"`
	Name     string  `json:"name"`
	Fields   []Field `json:"fields"`
	Optional bool    `json:"optional"`
}

type Field struct {
	Field string `json:"field"`
	Type  string `json:"type"`
}

var StructuredSchema = Schema{
	Type:     "struct",
	Name:     "DeviceStatusChanged",
	Optional: false,
	Fields: []Field{
		{Field: "event_id", Type: "string"},
		{Field: "device_key", Type: "string"},
		{Field: "status", Type: "string"},
		{Field: "changed_at", Type: "int64"},
	},
}
