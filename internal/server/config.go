package server

const (
	DefaultAddr = ":5000"
	DefaultKeep = 15

	// Remembered batch ids for duplicate detection.
	seenBatchLimit = 64
)

type Config struct {
	Addr string
	Keep int
}

func DefaultConfig() Config {
	return Config{Addr: DefaultAddr, Keep: DefaultKeep}
}
