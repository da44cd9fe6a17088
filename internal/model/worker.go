package model

// Worker identifies a worker process to the fleet
type Worker struct {
	ID        string `msgpack:"id"`
	Name      string `msgpack:"worker_name"`
	Processes int    `msgpack:"processes"`
}

// NewWorker creates a worker identity record
func NewWorker(id, name string, processes int) Worker {
	return Worker{
		ID:        id,
		Name:      name,
		Processes: processes,
	}
}
