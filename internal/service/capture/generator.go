package capture

import (
	"fmt"
	"sync/atomic"
)

// Generator issues session IDs of the form "<client>-sess-N".
type Generator struct {
	counter uint64
}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Next(clientID string) string {
	n := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%s-sess-%d", clientID, n)
}
