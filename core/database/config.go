package database

import coreconfig "github.com/korveth/ti4bot/core/config"

// Config aliases the connection settings block. The struct is defined in
// core/config so that package keeps no internal imports; this package may
// depend on it freely (config never imports database).
type Config = coreconfig.DatabaseConfig
