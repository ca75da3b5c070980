// Package config manages the starting-position presets new rooms use.
//
// A preset is a small JSON file in the config directory:
//
//	{
//	  "name": "King and pawn",
//	  "description": "Endgame drill",
//	  "fen": "8/8/8/4k3/8/8/4P3/4K3 w - - 0 1"
//	}
//
// The file name without .json is the preset ID. The built-in "standard"
// preset is always available and is the default. Presets are validated
// through the rules engine when loaded and cached in memory afterwards.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := manager.SetDefault("endgame"); err != nil {
//		log.Fatal(err)
//	}
//	rules, err := engine.NewChessRulesFrom(manager.GetDefault().FEN)
//
// Concurrency:
//
// Manager is safe for concurrent use. Loads take a read lock on the cache and
// upgrade to a write lock only when a file has to be read.
package config
