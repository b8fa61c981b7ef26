package models

import (
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	ledgerNode     *snowflake.Node
	ledgerNodeOnce sync.Once
)

// NextLedgerID returns a time-ordered unique identifier for ledger records.
// Snowflake IDs keep appends in rough commit order under concurrent writers
// without a shared sequence round-trip.
func NextLedgerID() int64 {
	ledgerNodeOnce.Do(func() {
		nodeID := int64(1)
		if v := os.Getenv("LEDGER_NODE_ID"); v != "" {
			if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
				nodeID = parsed
			}
		}
		node, err := snowflake.NewNode(nodeID)
		if err != nil {
			// Node number out of range is a deployment config error
			panic(err)
		}
		ledgerNode = node
	})
	return ledgerNode.Generate().Int64()
}
