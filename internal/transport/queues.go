package transport

// Queue names shared by producers, workers, the registrar and result consumers.
// They are an external contract and must match byte for byte.
const (
	QueueWorkerRegister = "jq:workerRegister"
	QueueJobRegister    = "jq:jobRegister"
	QueueGlobal         = "jq:globalQueue"
	QueueResult         = "jq:resultQueue"

	// ChannelPing carries worker liveness broadcasts
	ChannelPing = "jq:ping"
)

// Queues lists every point-to-point queue, for brokers that declare queues up front
func Queues() []string {
	return []string{QueueWorkerRegister, QueueJobRegister, QueueGlobal, QueueResult}
}
