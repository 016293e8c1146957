package world

// SimCPU is a settable CPU accessor for tests and the simulator. Process
// bodies drive consumption explicitly via Consume, which makes budget
// behavior reproducible independent of wall-clock timing.
type SimCPU struct {
	used   float64
	limit  float64
	bucket float64
}

// NewSimCPU creates an accessor with zero usage.
func NewSimCPU(limit, bucket float64) *SimCPU {
	return &SimCPU{limit: limit, bucket: bucket}
}

// Consume adds simulated CPU usage.
func (c *SimCPU) Consume(amount float64) {
	if amount > 0 {
		c.used += amount
	}
}

// SetUsed overwrites the usage counter. Tests use this to park the
// accessor just under or over a threshold.
func (c *SimCPU) SetUsed(v float64) { c.used = v }

func (c *SimCPU) Used() float64   { return c.used }
func (c *SimCPU) Limit() float64  { return c.limit }
func (c *SimCPU) Bucket() float64 { return c.bucket }
