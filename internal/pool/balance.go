package pool

// balancer splits worker slots between stroke jobs and update jobs.
//
// While both queues have work, a stroke job is picked as long as
// strokes <= ratio*updates, so a ratio of 100 lets roughly a hundred stroke
// jobs through for every update. The counters restart whenever one of the
// queues runs dry. Only the dispatcher goroutine touches it.
type balancer struct {
	strokes int
	updates int
}

func (b *balancer) pickStroke(ratio float64) bool {
	return float64(b.strokes) <= ratio*float64(b.updates)
}

func (b *balancer) reset() {
	b.strokes, b.updates = 0, 0
}
