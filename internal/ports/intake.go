package ports

// Intake is a surface that hands raw messages to the analysis pipeline
type Intake interface {
	// Start starts the intake service without blocking
	Start() error

	// Stop stops the intake service
	Stop() error
}

// Stopper releases a background resource such as a pool or cleanup task
type Stopper interface {
	Stop()
}
