package util

import "time"

// Now devolve o instante atual em UTC. Centralizado para manter
// timestamps persistidos sempre na mesma zona.
func Now() time.Time {
	return time.Now().UTC()
}
