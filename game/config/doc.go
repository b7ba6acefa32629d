// Package config provides configuration for the Trivia Journey server.
//
// The config package handles two things:
//
// Difficulty presets. Each preset is a JSON file in the configs directory,
// named after the preset (easy.json, normal.json, hard.json). A preset sets
// the answer timer, the tile values, the AI success probability per level and
// think-time range, the settle delay and the fuzzy match threshold. The
// normal preset is built in and is used when no file overrides it.
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//	hard, err := manager.LoadConfig("hard")
//	presets, err := manager.ListConfigs()
//
// Server settings. ServerConfig is read from the environment (optionally
// seeded from a .env file) and covers listen address, file locations, the
// session store backend, log level, session TTL and ngrok tunnelling.
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
package config
