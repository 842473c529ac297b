package kafka

import "time"

// IncomingMessage is a consumed Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string
}

// TenantID returns the tenant header, empty when absent
func (m *IncomingMessage) TenantID() string {
	return m.Headers["tenant_id"]
}
