package gen

import (
	"fmt"

	"heartbeat-controlplane/pkg/config"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

var Module = fx.Module("gen", fx.Provide(ProvideSnowflakeNode))

// ProvideSnowflakeNode builds the id generator for SNOWFLAKE_NODE (0-1023).
// Every replica must run with a distinct node id.
func ProvideSnowflakeNode(cfg *config.Config) (*snowflake.Node, error) {
	node, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", cfg.SnowflakeNode, err)
	}
	return node, nil
}
