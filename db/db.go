package db

import "embed"

// Schema and seed files for the client session store and the sandbox.
const (
	ClientMigrations  = "migrations/client"
	SandboxMigrations = "migrations/sandbox"
	SandboxSeed       = "seed"
)

//go:embed migrations/client/*.sql migrations/sandbox/*.sql
var Migrations embed.FS

//go:embed seed/*.sql
var SeedFiles embed.FS
