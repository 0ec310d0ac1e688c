//go:build duckdb

package RouteDB

import "github.com/nickyhof/RouteDB/config"

func init() {
	benchmarkKinds["DuckDB"] = config.EngineConfig{Name: "bench", Kind: config.KindDuckDB}
}
