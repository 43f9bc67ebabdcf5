package db

import "embed"

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var Migrations embed.FS

//go:embed seed/sqlite/*.sql seed/postgres/*.sql
var SeedFiles embed.FS
