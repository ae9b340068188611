package atlas

// FrameStats summarizes one Render call.
type FrameStats struct {
	Frame      uint64 `json:"frame"`
	Resolution int    `json:"resolution"`

	Proposals int `json:"proposals"`
	Rejected  int `json:"rejected"`
	Objects   int `json:"objects"`
	Tiles     int `json:"tiles"`
	Dirty     int `json:"dirty"`

	Inserted       int `json:"inserted"`
	Freed          int `json:"freed"`
	InsertFailures int `json:"insert_failures"`
	Evicted        int `json:"evicted"`

	Rebuilt      bool    `json:"rebuilt"`
	Defragmented bool    `json:"defragmented"`
	Occupancy    float64 `json:"occupancy"`

	ObjectFloat4s  int    `json:"object_float4s"`
	Chunks         int    `json:"chunks"`
	ChunkPairs     int    `json:"chunk_pairs"`
	ChunkCounter   uint32 `json:"chunk_counter"`
	ChunkOverflows int    `json:"chunk_overflows"`
	CapacityBytes  int    `json:"capacity_bytes"`
	NotReady       bool   `json:"not_ready"`

	// Counter readbacks issued and dropped (failed, timed out or abandoned
	// by a reset) during this frame.
	ReadbacksIssued  int `json:"readbacks_issued"`
	ReadbacksDropped int `json:"readbacks_dropped"`
}
