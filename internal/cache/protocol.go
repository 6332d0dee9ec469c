package cache

// Simple JSON protocol for cache daemon over a Unix domain socket.
// One request -> one response using json.Encoder/Decoder per connection.

const (
	OpMatch           = "match"
	OpPut             = "put"
	OpPutAll          = "put-all"
	OpKeys            = "keys"
	OpPartitions      = "partitions"
	OpDeletePartition = "delete-partition"
)

type Request struct {
	Op        string            `json:"op"`
	Partition string            `json:"partition,omitempty"`
	Key       string            `json:"key,omitempty"`
	Entry     *Entry            `json:"entry,omitempty"`
	Entries   map[string]*Entry `json:"entries,omitempty"`
}

type Response struct {
	OK         bool     `json:"ok"`
	Entry      *Entry   `json:"entry,omitempty"`
	Keys       []string `json:"keys,omitempty"`
	Partitions []string `json:"partitions,omitempty"`
	Existed    bool     `json:"existed,omitempty"`
	Error      string   `json:"error,omitempty"`
}
