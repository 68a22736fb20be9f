package id

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init sets up the process-wide node. Only the first call has an effect.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New returns a time-ordered report session id. Init must have been called.
func New() int64 {
	return node.Generate().Int64()
}

// String formats an id the way it appears in URLs and JSON payloads.
func String(id int64) string {
	return snowflake.ID(id).String()
}

// Parse reads an id produced by String.
func Parse(s string) (int64, error) {
	parsed, err := snowflake.ParseString(s)
	if err != nil {
		return 0, fmt.Errorf("parsing id %q: %w", s, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("parsing id %q: must be positive", s)
	}
	return parsed.Int64(), nil
}
